package serve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hangxie/building-angles/angles"
	"github.com/hangxie/building-angles/cmd/internal/results"
	"github.com/hangxie/building-angles/internal/logger"
	"github.com/hangxie/building-angles/render"
)

const shutdownTimeout = 5 * time.Second

// Cmd is a kong command for serve
type Cmd struct {
	results.Option
	Addr string `help:"Address to listen on." env:"BUILDING_ANGLES_ADDR" default:":8080"`
	URI  string `arg:"" predictor:"file" help:"URI of result file."`
}

// Run does actual serve job
func (c Cmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, closer, err := c.load()
	if err != nil {
		return err
	}
	defer func() {
		_ = closer()
	}()

	listener, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on [%s]: %w", c.Addr, err)
	}
	return serve(ctx, listener, handler)
}

func (c Cmd) load() (http.Handler, func() error, error) {
	idx := angles.NewIndex()
	if err := results.Read(c.URI, c.Option, idx.Add); err != nil {
		return nil, nil, err
	}
	logger.L().Info("result_loaded", "uri", c.URI, "tiles", idx.Len())

	r, err := render.NewRenderer()
	if err != nil {
		return nil, nil, err
	}
	return logger.AccessMiddleware(logger.L())(NewHandler(idx, r)), r.Close, nil
}

func serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	s := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()
	logger.L().Info("serving", "addr", listener.Addr().String())

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewHandler serves /{zoom}/{x}/{y}.png as polar plot tiles
func NewHandler(idx *angles.Index, r *render.Renderer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{zoom}/{x}/{y}", func(w http.ResponseWriter, req *http.Request) {
		key, err := parseTileKey(req.PathValue("zoom"), req.PathValue("x"), req.PathValue("y"))
		if err != nil {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		var buf bytes.Buffer
		if err := r.WritePNG(&buf, idx.Summary(key)); err != nil {
			logger.L().Error("render_failed", "zoom", key.Zoom, "x", key.X, "y", key.Y, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("content-type", "image/png")
		w.Header().Set("content-length", strconv.Itoa(buf.Len()))
		_, _ = w.Write(buf.Bytes())
	})
	return mux
}

func parseTileKey(zoom, x, y string) (angles.TileKey, error) {
	y, found := strings.CutSuffix(y, ".png")
	if !found {
		return angles.TileKey{}, fmt.Errorf("tile [%s] is not a PNG", y)
	}
	z, err := strconv.ParseInt(zoom, 10, 32)
	if err != nil {
		return angles.TileKey{}, fmt.Errorf("invalid zoom [%s]: %w", zoom, err)
	}
	col, err := strconv.ParseInt(x, 10, 64)
	if err != nil {
		return angles.TileKey{}, fmt.Errorf("invalid x [%s]: %w", x, err)
	}
	row, err := strconv.ParseInt(y, 10, 64)
	if err != nil {
		return angles.TileKey{}, fmt.Errorf("invalid y [%s]: %w", y, err)
	}
	return angles.TileKey{Zoom: int32(z), X: col, Y: row}, nil
}
