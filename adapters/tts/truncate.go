package tts

// Truncate returns the first max characters of text. Characters are runes,
// so multi-byte scripts such as Persian are never split mid-sequence.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}
