package api

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/internal/websocket"
	"github.com/satriahrh/voxgate/usecase"
)

// InitRoutes initializes all API routes. metricsHandler may be nil when
// metrics are disabled.
func InitRoutes(e *echo.Echo, gateway *usecase.Gateway, hub *websocket.Hub, metricsHandler http.Handler, logger *zap.Logger) {
	h := &handler{gateway: gateway, logger: logger}

	e.GET("/health", h.health)

	e.POST("/reply", h.reply)
	e.POST("/summarize", h.summarize)
	e.POST("/tts", h.tts)
	e.POST("/tts/stream", h.ttsStream)

	e.GET("/ws/tts", hub.HandleWebSocket)

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
}

type handler struct {
	gateway *usecase.Gateway
	logger  *zap.Logger
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.gateway.Health())
}

func (h *handler) reply(c echo.Context) error {
	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	result, err := h.gateway.Reply(c.Request().Context(), req.UserMessage)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ReplyResponse{Response: result.Text, Refused: result.Refused})
}

func (h *handler) summarize(c echo.Context) error {
	var req SummarizeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	result, err := h.gateway.Summarize(c.Request().Context(), req.TextToSummarize)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SummarizeResponse{Summary: result.Text, Refused: result.Refused})
}

func (h *handler) tts(c echo.Context) error {
	var req TTSRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	wav, err := h.gateway.SynthesizeSpeech(c.Request().Context(), domain.SpeechRequest{Text: req.Text, VoiceID: req.Voice})
	if err != nil {
		return writeSpeechError(c, err)
	}
	return c.JSON(http.StatusOK, TTSResponse{AudioData: base64.StdEncoding.EncodeToString(wav)})
}

// ttsStream writes consecutive self-contained WAV chunks as a chunked
// response. The status is committed only after the first chunk exists, so
// failures before any audio still get a proper error response.
func (h *handler) ttsStream(c echo.Context) error {
	var req TTSRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	stream, err := h.gateway.OpenSpeech(c.Request().Context(), domain.SpeechRequest{Text: req.Text, VoiceID: req.Voice})
	if err != nil {
		return writeSpeechError(c, err)
	}
	defer stream.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "audio/wav")
	res.Header().Set("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusOK)

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// Headers are gone; dropping the connection is the only signal left.
			h.logger.Warn("Speech stream ended early",
				zap.Int("chunks", stream.Chunks()),
				zap.Error(err))
			return nil
		}
		if _, err := res.Write(chunk); err != nil {
			h.logger.Info("Client went away during speech stream", zap.Error(err))
			return nil
		}
		res.Flush()
	}
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(domain.ErrInvalidRequest),
		Message: "Invalid request format",
	})
}

// writeSpeechError renders a content-policy refusal as a normal answer and
// every other failure through writeError.
func writeSpeechError(c echo.Context, err error) error {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Kind == domain.ErrSafetyBlocked {
		return c.JSON(http.StatusOK, BlockedResponse{Blocked: true, Message: pe.Detail})
	}
	return writeError(c, err)
}

func writeError(c echo.Context, err error) error {
	kind := domain.KindOf(err)
	if kind == "" {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Unexpected failure",
		})
	}
	return c.JSON(StatusFor(err), ErrorResponse{
		Error:   string(kind),
		Message: err.Error(),
	})
}

// StatusFor maps a gateway error to the HTTP status returned to callers.
func StatusFor(err error) int {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}

	switch pe.Kind {
	case domain.ErrInvalidRequest:
		return http.StatusBadRequest
	case domain.ErrSetupMissing:
		return http.StatusServiceUnavailable
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrUpstreamRejected:
		if pe.RateLimited() {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case domain.ErrMalformedResponse, domain.ErrMimeMismatch, domain.ErrSafetyBlocked:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
