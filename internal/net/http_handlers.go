package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"

	"spinarena/server/internal/booster"
	"spinarena/server/internal/economy"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/net/ws"
	"spinarena/server/internal/observability"
	"spinarena/server/internal/outcome"
	"spinarena/server/internal/round"
	"spinarena/server/internal/session"
	"spinarena/server/internal/telemetry"
	"spinarena/server/logging"
)

const maxRequestBody = 1 << 16

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Publisher     logging.Publisher
	Observability observability.Config
	// Counters and EventStats, when set, are reported on /diagnostics.
	Counters   *telemetry.Counters
	EventStats func() logging.RouterStats
	// DefaultWinProbability applies when a start request omits it.
	DefaultWinProbability float64
	DefaultCombatants     int
}

// startRoundRequest uses pointers so omitted fields fall back to defaults.
type startRoundRequest struct {
	Combatants     *int     `json:"combatants"`
	PlayerColor    *string  `json:"playerColor"`
	Booster        *string  `json:"booster"`
	SideBet        *bool    `json:"sideBet"`
	WinProbability *float64 `json:"winProbability"`
	Seed           *string  `json:"seed"`
}

type purchaseBoosterRequest struct {
	Booster *string `json:"booster"`
}

type purchaseBoosterResponse struct {
	Pickup booster.Pickup `json:"pickup"`
	Frame  session.Frame  `json:"frame"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var (
	errMissingBooster       = errors.New("booster is required")
	errUnknownBooster       = errors.New("unknown booster")
	errProbabilityOutOfSpan = errors.New("winProbability must be within [0, 1]")
)

// NewHTTPHandler exposes the session over REST and a websocket frame stream.
func NewHTTPHandler(sess *session.Session, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	defaultProbability := cfg.DefaultWinProbability
	if defaultProbability < 0 || defaultProbability > 1 {
		defaultProbability = outcome.DefaultWinProbability
	}
	defaultCombatants := cfg.DefaultCombatants
	if defaultCombatants == 0 {
		defaultCombatants = round.MaxCombatants
	}
	stream := ws.NewHandler(sess, ws.HandlerConfig{Logger: logger, Publisher: cfg.Publisher})

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		frame := sess.Snapshot()
		payload := struct {
			Status        string               `json:"status"`
			ServerTime    int64                `json:"serverTime"`
			SessionID     string               `json:"sessionId"`
			State         round.State          `json:"state"`
			Tick          uint64               `json:"tick"`
			Balance       float64              `json:"balance"`
			Viewers       int                  `json:"viewers"`
			DroppedFrames uint64               `json:"droppedFrames"`
			Counters      map[string]uint64    `json:"counters,omitempty"`
			Events        *logging.RouterStats `json:"events,omitempty"`
		}{
			Status:        "ok",
			ServerTime:    time.Now().UnixMilli(),
			SessionID:     sess.ID(),
			State:         frame.Snapshot.State,
			Tick:          frame.Snapshot.Tick,
			Balance:       frame.Snapshot.Ledger.Balance,
			Viewers:       stream.Viewers(),
			DroppedFrames: sess.Dropped(),
			Counters:      cfg.Counters.Snapshot(),
		}
		if cfg.EventStats != nil {
			stats := cfg.EventStats()
			payload.Events = &stats
		}
		writeJSON(w, logger, nethttp.StatusOK, payload)
	}).Methods(nethttp.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/state", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, logger, nethttp.StatusOK, sess.Snapshot())
	}).Methods(nethttp.MethodGet)

	api.HandleFunc("/rounds", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req startRoundRequest
		if err := decodeBody(r, &req); err != nil {
			httpError(w, logger, "invalid request body", nethttp.StatusBadRequest)
			return
		}
		opts, err := req.options(defaultCombatants, defaultProbability)
		if err != nil {
			httpError(w, logger, err.Error(), nethttp.StatusBadRequest)
			return
		}
		frame, err := sess.StartRound(r.Context(), opts)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, logger, nethttp.StatusCreated, frame)
	}).Methods(nethttp.MethodPost)

	api.HandleFunc("/rounds/replay", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		frame, err := sess.Replay()
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, logger, nethttp.StatusOK, frame)
	}).Methods(nethttp.MethodPost)

	api.HandleFunc("/boosters", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req purchaseBoosterRequest
		if err := decodeBody(r, &req); err != nil {
			httpError(w, logger, "invalid request body", nethttp.StatusBadRequest)
			return
		}
		if req.Booster == nil || *req.Booster == "" {
			httpError(w, logger, errMissingBooster.Error(), nethttp.StatusBadRequest)
			return
		}
		effect, ok := entity.ParseEffect(*req.Booster)
		if !ok || effect == entity.EffectNone {
			httpError(w, logger, errUnknownBooster.Error(), nethttp.StatusBadRequest)
			return
		}
		pickup, frame, err := sess.PurchaseBooster(effect)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, logger, nethttp.StatusCreated, purchaseBoosterResponse{Pickup: pickup, Frame: frame})
	}).Methods(nethttp.MethodPost)

	router.HandleFunc("/ws", stream.Handle)

	if cfg.Observability.EnablePprofTrace {
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	if cfg.ClientDir != "" {
		router.PathPrefix("/").Handler(nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return router
}

func (req startRoundRequest) options(defaultCombatants int, defaultProbability float64) (round.Options, error) {
	opts := round.Options{
		Combatants:     defaultCombatants,
		PlayerColor:    entity.ColorRed,
		WinProbability: defaultProbability,
	}
	if req.Combatants != nil {
		opts.Combatants = *req.Combatants
	}
	if req.PlayerColor != nil {
		color, ok := entity.ParseColor(*req.PlayerColor)
		if !ok {
			return round.Options{}, round.ErrInvalidPlayerColor
		}
		opts.PlayerColor = color
	}
	if req.Booster != nil && *req.Booster != "" {
		effect, ok := entity.ParseEffect(*req.Booster)
		if !ok {
			return round.Options{}, errUnknownBooster
		}
		opts.Booster = effect
	}
	if req.SideBet != nil {
		opts.SideBet = *req.SideBet
	}
	if req.WinProbability != nil {
		p := *req.WinProbability
		if p < 0 || p > 1 {
			return round.Options{}, errProbabilityOutOfSpan
		}
		opts.WinProbability = p
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	return opts, nil
}

// decodeBody accepts an empty body as an empty request.
func decodeBody(r *nethttp.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, economy.ErrInsufficientBalance):
		return nethttp.StatusPaymentRequired
	case errors.Is(err, round.ErrRoundInProgress), errors.Is(err, round.ErrNotRunning), errors.Is(err, round.ErrNotReady):
		return nethttp.StatusConflict
	case errors.Is(err, round.ErrInvalidCombatantCount),
		errors.Is(err, round.ErrInvalidPlayerColor),
		errors.Is(err, booster.ErrNoBooster):
		return nethttp.StatusBadRequest
	default:
		return nethttp.StatusInternalServerError
	}
}

func writeDomainError(w nethttp.ResponseWriter, logger telemetry.Logger, err error) {
	status := statusFor(err)
	if status == nethttp.StatusInternalServerError {
		logger.Printf("request failed: %v", err)
	}
	httpError(w, logger, err.Error(), status)
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, logger telemetry.Logger, msg string, code int) {
	writeJSON(w, logger, code, errorResponse{Error: msg})
}
