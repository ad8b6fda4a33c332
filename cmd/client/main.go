package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"runevale.gg/internal/persistence/indexdb"
	persistlog "runevale.gg/internal/persistence/log"
	"runevale.gg/internal/sim/scene"
	"runevale.gg/internal/sim/tuning"
	"runevale.gg/internal/sim/zone"
	"runevale.gg/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "game server ws url")
		name       = flag.String("name", "Adventurer", "player display name")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the local session index")
		wander     = flag.Bool("wander", false, "walk around on a timer instead of standing still")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open session index: %v", err)
		}
		defer idx.Close()
	}

	diagLog := persistlog.NewDiagLogger(*dataDir, logger)
	defer diagLog.Close()

	ctx, cancel := signalContext()
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := ws.Dial(dialCtx, *url, *name, logger)
	dialCancel()
	if err != nil {
		logger.Fatalf("dial %s: %v", *url, err)
	}
	defer client.Close()
	logger.Printf("WELCOME player_id=%s spawn=%v", client.PlayerID(), client.Spawn())

	var input scene.InputSource
	if *wander {
		input = newWanderInput(time.Now().UnixNano())
	}

	s, err := scene.New(scene.Config{
		LocalID:   client.PlayerID(),
		LocalName: *name,
		Spawn:     client.Spawn(),
		Tuning:    tune,
		Input:     input,
		Renderer:  scene.NewMemoryRenderer(),
		Directory: client,
		Reports:   client,
		Diag:      diagLog,
		Logger:    logger,
		OnZoneChange: func(z zone.Zone) {
			logger.Printf("entered %s", z)
		},
	})
	if err != nil {
		logger.Fatalf("scene: %v", err)
	}

	client.Start(s.Events())

	sessionID := uuid.NewString()
	started := time.Now()

	go func() {
		select {
		case <-client.Done():
			logger.Printf("connection closed")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.Run(ctx); err != nil && err != context.Canceled {
		logger.Printf("scene stopped: %v", err)
	}

	// Counters are owned by the loop goroutine; read them only after Run
	// has returned.
	st := s.StatsSnapshot()
	if idx != nil {
		idx.RecordSession(indexdb.RowFromStats(
			sessionID, client.PlayerID(), *name,
			started, time.Now(), st,
		))
	}
	logger.Printf("session over frames=%d reports=%d anomalies=%d", st.Frames, st.ReportsSent, st.Anomalies)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// wanderInput walks in a random direction for a few seconds at a time,
// with idle pauses in between. Handy for soaking a server with traffic.
type wanderInput struct {
	r     *rand.Rand
	until time.Time
	cur   scene.Input
}

func newWanderInput(seed int64) *wanderInput {
	return &wanderInput{r: rand.New(rand.NewSource(seed))}
}

func (w *wanderInput) Sample() scene.Input {
	now := time.Now()
	if now.After(w.until) {
		w.until = now.Add(time.Duration(2+w.r.Intn(4)) * time.Second)
		if w.r.Intn(3) == 0 {
			w.cur = scene.Input{}
		} else {
			w.cur = scene.Input{
				Forward:   true,
				CameraYaw: w.r.Float64()*2*math.Pi - math.Pi,
			}
		}
	}
	return w.cur
}
