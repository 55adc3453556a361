package audio

import "iter"

// Emit turns a sequence of PCM fragments into a sequence of WAV chunks, one
// chunk per non-empty fragment, in arrival order.
//
// The next fragment is only pulled from upstream once the consumer asks for
// the next chunk, so a slow consumer pauses the upstream. Empty fragments
// produce no chunk. An upstream error is yielded once and ends the sequence.
// Like the fragment sequence it wraps, the result can be ranged over once.
func Emit(f Format, fragments iter.Seq2[[]byte, error]) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for pcm, err := range fragments {
			if err != nil {
				yield(nil, err)
				return
			}
			if len(pcm) == 0 {
				continue
			}
			if !yield(Mux(f, pcm), nil) {
				return
			}
		}
	}
}
