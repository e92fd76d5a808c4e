package twilio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kaelos-ai/voicebridge/pkg/errorsx"
	"github.com/kaelos-ai/voicebridge/pkg/transcripts"
	twilioclient "github.com/twilio/twilio-go/client"
)

type Config struct {
	ServerAddr     string `mapstructure:"server_addr"`
	PublicURL      string `mapstructure:"public_url"`
	AccountSID     string `mapstructure:"account_sid"`
	AuthToken      string `mapstructure:"auth_token"`
	VoicePath      string `mapstructure:"voice_path"`
	WebsocketPath  string `mapstructure:"ws_path"`
	TranscriptPath string `mapstructure:"transcript_path"`

	// Spoken before the media stream is connected.
	ConnectPrompt string `mapstructure:"connect_prompt"`
	ReadyPrompt   string `mapstructure:"ready_prompt"`

	TranscriptionLanguage string `mapstructure:"transcription_language"`
	InboundTrackLabel     string `mapstructure:"inbound_track_label"`
	OutboundTrackLabel    string `mapstructure:"outbound_track_label"`
}

func (c Config) withDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = ":5050"
	}
	if c.VoicePath == "" {
		c.VoicePath = "/incoming-call"
	}
	if c.WebsocketPath == "" {
		c.WebsocketPath = "/media-stream"
	}
	if c.TranscriptPath == "" {
		c.TranscriptPath = "/transcript-callback"
	}
	if c.ConnectPrompt == "" {
		c.ConnectPrompt = "Please wait while we connect your call to the A.I"
	}
	if c.ReadyPrompt == "" {
		c.ReadyPrompt = "O.K. you can start talking!"
	}
	if c.TranscriptionLanguage == "" {
		c.TranscriptionLanguage = "en-US"
	}
	if c.InboundTrackLabel == "" {
		c.InboundTrackLabel = "agent"
	}
	if c.OutboundTrackLabel == "" {
		c.OutboundTrackLabel = "customer"
	}
	return c
}

// StreamHandler runs one call over an accepted media stream. It returns when
// the call is over; the transport closes the stream afterwards.
type StreamHandler interface {
	HandleStream(ctx context.Context, stream *MediaStream)
}

// Transport owns the HTTP surface facing Twilio: the voice webhook that
// hands out TwiML, the media-stream WebSocket endpoint, and the
// transcription status callback.
type Transport struct {
	cfg      Config
	server   *http.Server
	upgrader websocket.Upgrader
	handler  StreamHandler
	store    *transcripts.Store
	logger   *slog.Logger

	mu      sync.Mutex
	streams map[*MediaStream]struct{}

	draining atomic.Bool
}

func New(cfg Config, handler StreamHandler, store *transcripts.Store, logger *slog.Logger) *Transport {
	cfg = cfg.withDefaults()
	if store == nil {
		store = transcripts.NewStore(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handler: handler,
		store:   store,
		logger:  logger,
		streams: make(map[*MediaStream]struct{}),
	}
}

func (t *Transport) Name() string { return "twilio" }

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleIndex)
	mux.HandleFunc(t.cfg.VoicePath, t.handleVoice)
	mux.Handle(t.cfg.WebsocketPath, t)
	mux.HandleFunc(t.cfg.TranscriptPath, t.handleTranscript)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	t.server = &http.Server{
		Addr:              t.cfg.ServerAddr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = t.server.Close()
	}()
	go func() {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("twilio_transport_server_error", "error", err.Error())
		}
	}()
	return nil
}

func (t *Transport) Drain() error {
	t.draining.Store(true)
	if t.server != nil {
		_ = t.server.Close()
	}
	t.mu.Lock()
	for s := range t.streams {
		_ = s.Close()
	}
	t.streams = make(map[*MediaStream]struct{})
	t.mu.Unlock()
	return nil
}

func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if t.handler == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	stream := newMediaStream(conn)
	t.track(stream)
	defer func() {
		t.untrack(stream)
		_ = stream.Close()
	}()

	traceID := uuid.NewString()
	logger := t.logger.With("trace_id", traceID)
	logger.Info("media_stream_accepted", "remote_addr", r.RemoteAddr)

	t.handler.HandleStream(r.Context(), stream)
	logger.Info("media_stream_finished")
}

func (t *Transport) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message":"Twilio Media Stream Server is running!"}`))
}

func (t *Transport) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if t.cfg.AuthToken != "" && !t.validateTwilioRequest(r) {
		t.logger.Warn("twilio_invalid_signature",
			"reason_code", string(errorsx.ReasonTransportInvalidSignature),
			"path", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(t.voiceTwiML(r)))
}

func (t *Transport) voiceTwiML(r *http.Request) string {
	var b strings.Builder
	b.WriteString(`<Response>`)
	b.WriteString(`<Start><Transcription statusCallbackUrl="` + xmlEscape(t.transcriptCallbackURL()) + `"`)
	b.WriteString(` languageCode="` + xmlEscape(t.cfg.TranscriptionLanguage) + `"`)
	b.WriteString(` inboundTrackLabel="` + xmlEscape(t.cfg.InboundTrackLabel) + `"`)
	b.WriteString(` outboundTrackLabel="` + xmlEscape(t.cfg.OutboundTrackLabel) + `"/></Start>`)
	b.WriteString(`<Say>` + xmlEscape(t.cfg.ConnectPrompt) + `</Say>`)
	b.WriteString(`<Pause length="1"/>`)
	b.WriteString(`<Say>` + xmlEscape(t.cfg.ReadyPrompt) + `</Say>`)
	b.WriteString(`<Connect><Stream url="` + xmlEscape(t.websocketURL(r)) + `"/></Connect>`)
	b.WriteString(`</Response>`)
	return b.String()
}

func (t *Transport) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if t.cfg.AuthToken != "" && !t.validateTwilioRequest(r) {
		t.logger.Warn("twilio_transcript_invalid_signature",
			"reason_code", string(errorsx.ReasonTransportInvalidSignature))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	entry := transcripts.Entry{
		TranscriptionSID: r.FormValue("TranscriptionSid"),
		CallSID:          r.FormValue("CallSid"),
		Track:            r.FormValue("Track"),
		Data:             r.FormValue("TranscriptionData"),
		Status:           r.FormValue("TranscriptionEvent"),
	}
	if err := t.store.Record(entry); err != nil {
		t.logger.Error("transcript_store_error", "error", err.Error())
	}
	w.WriteHeader(http.StatusOK)
}

func (t *Transport) track(s *MediaStream) {
	t.mu.Lock()
	t.streams[s] = struct{}{}
	t.mu.Unlock()
}

func (t *Transport) untrack(s *MediaStream) {
	t.mu.Lock()
	delete(t.streams, s)
	t.mu.Unlock()
}

func (t *Transport) websocketURL(r *http.Request) string {
	if t.cfg.PublicURL != "" {
		return "wss://" + normalizePublicURL(t.cfg.PublicURL) + t.cfg.WebsocketPath
	}
	host := r.Host
	if host == "" {
		host = strings.TrimPrefix(t.cfg.ServerAddr, ":")
	}
	return "wss://" + host + t.cfg.WebsocketPath
}

func (t *Transport) transcriptCallbackURL() string {
	if t.cfg.PublicURL != "" {
		return "https://" + normalizePublicURL(t.cfg.PublicURL) + t.cfg.TranscriptPath
	}
	addr := t.cfg.ServerAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + t.cfg.TranscriptPath
}

// VoiceWebhookURL is the URL Twilio should POST incoming calls to;
// surfaced at startup so operators can paste it into the console.
func (t *Transport) VoiceWebhookURL() string {
	if t.cfg.PublicURL != "" {
		return "https://" + normalizePublicURL(t.cfg.PublicURL) + t.cfg.VoicePath
	}
	addr := t.cfg.ServerAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + t.cfg.VoicePath
}

func (t *Transport) validateTwilioRequest(r *http.Request) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	validator := twilioclient.NewRequestValidator(t.cfg.AuthToken)
	return validator.ValidateBody(t.requestURL(r), body, signature)
}

func (t *Transport) requestURL(r *http.Request) string {
	if t.cfg.PublicURL != "" {
		base := strings.TrimRight(t.cfg.PublicURL, "/")
		return base + r.URL.RequestURI()
	}
	scheme := r.URL.Scheme
	if scheme == "" {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else {
			scheme = "https"
		}
	}
	host := r.Host
	if host == "" {
		host = strings.TrimPrefix(t.cfg.ServerAddr, ":")
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

func xmlEscape(in string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(in)
}

func normalizePublicURL(v string) string {
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "https://") {
		v = strings.TrimPrefix(v, "https://")
	} else if strings.HasPrefix(v, "http://") {
		v = strings.TrimPrefix(v, "http://")
	}
	return strings.TrimRight(v, "/")
}
