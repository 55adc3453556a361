// Command ttsclient requests streamed speech from a running voxgate server,
// checks every received chunk, stores the chunks and a joined WAV, and plays
// the result.
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/internal/audio"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("VOXGATE_URL", "http://localhost:8080"), "base URL of the voxgate server")
	text := flag.String("text", "سلام! این یک آزمایش تبدیل متن به گفتار است.", "text to voice")
	voice := flag.String("voice", "", "voice name; empty uses the server default")
	outDir := flag.String("out", "tts_output", "directory for received chunks")
	useWS := flag.Bool("ws", false, "use the WebSocket transport instead of HTTP streaming")
	timeout := flag.Duration("timeout", 60*time.Second, "overall request timeout")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}
	sink := &chunkSink{dir: *outDir, logger: logger}

	logger.Info("Requesting speech",
		zap.String("server", *server),
		zap.Bool("websocket", *useWS),
		zap.Int("textLength", len([]rune(*text))))

	started := time.Now()
	if *useWS {
		err = streamWebSocket(ctx, *server, *text, *voice, sink)
	} else {
		err = streamHTTP(ctx, *server, *text, *voice, sink)
	}
	if err != nil {
		logger.Fatal("Speech request failed", zap.Error(err), zap.Int("chunksReceived", sink.count))
	}

	joined := filepath.Join(*outDir, "joined.wav")
	if err := os.WriteFile(joined, audio.Mux(sink.format, sink.pcm), 0o644); err != nil {
		logger.Fatal("Failed to write joined file", zap.Error(err))
	}

	logger.Info("Speech received",
		zap.Int("chunks", sink.count),
		zap.Int("bytes", len(sink.pcm)),
		zap.Duration("firstChunkAfter", sink.firstAt.Sub(started)),
		zap.Duration("elapsed", time.Since(started)),
		zap.String("outputFile", joined))

	if os.Getenv("NO_AUTOPLAY") == "true" {
		fmt.Printf("To play the audio, use: ffplay -nodisp -autoexit %s\n", joined)
		return
	}
	if err := playAudioFile(joined, logger); err != nil {
		logger.Warn("Failed to play audio automatically", zap.Error(err))
		fmt.Printf("Play it manually with: ffplay -nodisp -autoexit %s\n", joined)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// chunkSink validates and stores each received WAV chunk.
type chunkSink struct {
	dir     string
	logger  *zap.Logger
	count   int
	pcm     []byte
	format  audio.Format
	firstAt time.Time
}

func (s *chunkSink) accept(chunk []byte) error {
	h, err := audio.ParseHeader(chunk)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", s.count, err)
	}
	if s.count == 0 {
		s.format = h.Format
		s.firstAt = time.Now()
	} else if h.Format != s.format {
		return fmt.Errorf("chunk %d: format %s differs from %s", s.count, h.Format, s.format)
	}

	name := filepath.Join(s.dir, fmt.Sprintf("chunk_%03d.wav", s.count))
	if err := os.WriteFile(name, chunk, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	s.pcm = append(s.pcm, chunk[audio.HeaderSize:]...)
	s.count++
	s.logger.Debug("Received audio chunk",
		zap.Int("chunkNumber", s.count),
		zap.Uint32("payloadBytes", h.DataSize),
		zap.String("format", h.Format.String()))
	return nil
}

func streamHTTP(ctx context.Context, server, text, voice string, sink *chunkSink) error {
	body, err := json.Marshal(map[string]string{"text": text, "voice": voice})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(server, "/")+"/tts/stream", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Type") != "audio/wav" {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server answered %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	// Chunks are concatenated; each header declares its own payload size.
	header := make([]byte, audio.HeaderSize)
	for {
		if _, err := io.ReadFull(resp.Body, header); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read header of chunk %d: %w", sink.count, err)
		}
		size := binary.LittleEndian.Uint32(header[40:44])
		chunk := make([]byte, audio.HeaderSize+int(size))
		copy(chunk, header)
		if _, err := io.ReadFull(resp.Body, chunk[audio.HeaderSize:]); err != nil {
			return fmt.Errorf("read payload of chunk %d: %w", sink.count, err)
		}
		if err := sink.accept(chunk); err != nil {
			return err
		}
	}
}

func streamWebSocket(ctx context.Context, server, text, voice string, sink *chunkSink) error {
	u, err := url.Parse(strings.TrimRight(server, "/") + "/ws/tts")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	if err := conn.WriteJSON(map[string]string{"type": "speak", "text": text, "voice": voice}); err != nil {
		return fmt.Errorf("send speak: %w", err)
	}

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if messageType == websocket.BinaryMessage {
			if err := sink.accept(payload); err != nil {
				return err
			}
			continue
		}

		var msg struct {
			Type    string `json:"type"`
			Chunks  int    `json:"chunks"`
			Code    string `json:"error_code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decode control message: %w", err)
		}
		switch msg.Type {
		case "speech_end":
			if msg.Chunks != sink.count {
				return fmt.Errorf("server reported %d chunks, received %d", msg.Chunks, sink.count)
			}
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case "error":
			return fmt.Errorf("server error %s: %s", msg.Code, msg.Message)
		}
	}
}

// playAudioFile attempts to play a WAV file using available system tools
func playAudioFile(filename string, logger *zap.Logger) error {
	players := []struct {
		command string
		args    []string
	}{
		{"play", nil},
		{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{"aplay", nil},
		{"afplay", nil},
	}

	for _, player := range players {
		if _, err := exec.LookPath(player.command); err != nil {
			continue
		}
		args := append(player.args, filename)
		logger.Info("Attempting to play audio", zap.String("player", player.command))
		err := exec.Command(player.command, args...).Run()
		if err == nil {
			return nil
		}
		logger.Debug("Player failed", zap.String("player", player.command), zap.Error(err))
	}
	return fmt.Errorf("no suitable audio player found")
}
