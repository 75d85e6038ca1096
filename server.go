package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/juruen/digitpad/auth"
	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
	"github.com/juruen/digitpad/raster"
	"github.com/juruen/digitpad/session"
	"github.com/juruen/digitpad/shell"
	"github.com/juruen/digitpad/version"
)

// uploads larger than this are rejected by /api/normalize
const maxImageBytes = 10 << 20

type ApiServer struct {
	cfg        config.Config
	store      *session.Store
	normalizer *normalize.Normalizer
	classifier classify.Classifier
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type pointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type normalizeResponse struct {
	shell.GridJSON
	Prediction shell.PredictionJSON `json:"prediction"`
}

func NewApiServer(cfg config.Config, c classify.Classifier) *ApiServer {
	return &ApiServer{
		cfg:        cfg,
		store:      session.NewStore(session.OptionsFromConfig(cfg), c),
		normalizer: normalize.New(cfg.NormalizeOptions()),
		classifier: c,
	}
}

func (s *ApiServer) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func (s *ApiServer) writeSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{Data: data})
}

// POST /api/sessions
func (s *ApiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := s.store.Create()
	log.Trace.Printf("created session %s", sess.ID)

	s.writeSuccess(w, map[string]interface{}{
		"id":     sess.ID,
		"width":  sess.Canvas().Width(),
		"height": sess.Canvas().Height(),
	})
}

// /api/sessions/{id}[/pointer|/clear|/grid|/predict]
func (s *ApiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}

	sess, err := s.store.Get(parts[0])
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		s.handleDelete(w, r, sess)
	case "pointer":
		s.handlePointer(w, r, sess)
	case "clear":
		s.handleClear(w, r, sess)
	case "grid":
		s.handleGrid(w, r, sess)
	case "predict":
		s.handlePredict(w, r, sess)
	default:
		http.NotFound(w, r)
	}
}

// DELETE /api/sessions/{id}
func (s *ApiServer) handleDelete(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Delete(sess.ID); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	s.writeSuccess(w, map[string]string{"message": "Session deleted", "id": sess.ID})
}

// POST /api/sessions/{id}/pointer
func (s *ApiServer) handlePointer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	p := raster.Point{X: req.X, Y: req.Y}
	switch req.Type {
	case "down":
		sess.PointerDown(p)
	case "move":
		sess.PointerMove(p)
	case "up":
		sess.PointerUp()
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown pointer event type %q", req.Type))
		return
	}

	s.writeSuccess(w, shell.SnapshotToJSON(sess.Snapshot(), false))
}

// POST /api/sessions/{id}/clear
func (s *ApiServer) handleClear(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess.Clear()
	s.writeSuccess(w, shell.SnapshotToJSON(sess.Snapshot(), false))
}

// GET /api/sessions/{id}/grid
func (s *ApiServer) handleGrid(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeSuccess(w, shell.SnapshotToJSON(sess.Snapshot(), true))
}

// GET /api/sessions/{id}/predict
func (s *ApiServer) handlePredict(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := sess.Predict(r.Context())
	s.writeSuccess(w, shell.PredictionToJSON(p))
}

// POST /api/normalize, body is an encoded image
func (s *ApiServer) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, errors.Wrap(err, "failed to read upload"))
		return
	}

	img, err := raster.Decode(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	b := img.Bounds()
	canvas := raster.FromImage(img, b.Dx(), b.Dy())
	snap, p := session.Classify(r.Context(), s.normalizer, s.classifier, canvas)

	s.writeSuccess(w, normalizeResponse{
		GridJSON:   shell.SnapshotToJSON(snap, true),
		Prediction: shell.PredictionToJSON(p),
	})
}

// GET /api/version
func (s *ApiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeSuccess(w, map[string]string{"version": version.Version})
}

// authenticate requires a bearer token signed with the configured secret.
// Without a secret every request passes.
func (s *ApiServer) authenticate(next http.Handler) http.Handler {
	secret := s.cfg.Server.JWTSecret
	if secret == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.FromRequest(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, err)
			return
		}
		claims, err := auth.Verify(secret, token)
		if err != nil {
			log.Trace.Printf("rejected token: %v", err)
			s.writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		log.Trace.Printf("%s %s by %s", r.Method, r.URL.Path, claims.Subject)
		next.ServeHTTP(w, r)
	})
}

func (s *ApiServer) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/api/sessions", s.handleSessions)
	api.HandleFunc("/api/sessions/", s.handleSession)
	api.HandleFunc("/api/normalize", s.handleNormalize)
	api.HandleFunc("/api/version", s.handleVersion)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authenticate(api))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Root endpoint with API documentation
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
	<title>digitpad REST API</title>
</head>
<body>
	<h1>digitpad REST API</h1>
	<h2>Endpoints:</h2>
	<ul>
		<li>POST /api/sessions - Create drawing session</li>
		<li>POST /api/sessions/{id}/pointer - Pointer event (down, move, up)</li>
		<li>POST /api/sessions/{id}/clear - Clear canvas</li>
		<li>GET /api/sessions/{id}/grid - Normalized grid and model input</li>
		<li>GET /api/sessions/{id}/predict - Classify current drawing</li>
		<li>DELETE /api/sessions/{id} - Delete session</li>
		<li>POST /api/normalize - Normalize an uploaded image</li>
		<li>GET /api/version - Get version</li>
	</ul>
</body>
</html>
		`)
	})

	return mux
}

func runServerMode(cfg config.Config, c classify.Classifier) {
	server := NewApiServer(cfg, c)

	if cfg.Server.JWTSecret == "" {
		log.Warning.Println("server.jwt_secret not set, API is unauthenticated")
	}

	port := cfg.Server.Port
	log.Info.Printf("Starting HTTP server on port %s", port)
	if err := http.ListenAndServe(":"+port, server.Handler()); err != nil {
		log.Error.Fatalf("Server failed: %v", err)
	}
}
