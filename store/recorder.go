package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/snekrush/logging"
	"github.com/brensch/snekrush/session"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// TickRow is one snapshot of a session. Body coordinates are tail first.
type TickRow struct {
	SessionID  string  `parquet:"session_id,dict"`
	Tick       int32   `parquet:"tick"`
	State      string  `parquet:"state,dict"`
	Score      int32   `parquet:"score"`
	Length     int32   `parquet:"length"`
	HighScore  int32   `parquet:"high_score"`
	IntervalMs int32   `parquet:"interval_ms"`
	Heading    string  `parquet:"heading,dict"`
	Palette    int32   `parquet:"palette"`
	BodyX      []int32 `parquet:"body_x"`
	BodyY      []int32 `parquet:"body_y"`
	FoodX      int32   `parquet:"food_x"`
	FoodY      int32   `parquet:"food_y"`
	FoodType   string  `parquet:"food_type,dict"`
	// AteType names the food eaten on this tick, empty otherwise.
	AteType    string  `parquet:"ate_type,dict"`
	Reason     string  `parquet:"reason,dict"`
	Width      int32   `parquet:"width"`
	Height     int32   `parquet:"height"`
	CellSize   int32   `parquet:"cell_size"`
	RecordedAt int64   `parquet:"recorded_at_ms"`
}

const tickRowSchema = "tick_row_v1"

const recordBuffer = 1024

// Recorder is a session.Listener that writes every snapshot of a session to
// <dir>/<session id>.parquet. Files are written under <dir>/tmp and renamed
// into place when the session ends, so readers only ever see complete files.
//
// Callbacks never block: when the writer falls behind by more than its buffer,
// rows are dropped and counted.
type Recorder struct {
	dir    string
	tmpDir string
	log    *slog.Logger
	in     chan recordMsg
	done   chan struct{}

	// mu guards closed and sends on in.
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64

	wmu     sync.Mutex
	written []string
}

type recordMsg struct {
	snap *session.Snapshot
	ate  string
}

func NewRecorder(dir string, logger *slog.Logger) (*Recorder, error) {
	r, err := newRecorder(dir, logger, recordBuffer)
	if err != nil {
		return nil, err
	}
	go r.loop()
	return r, nil
}

// newRecorder prepares the directories without starting the writer.
func newRecorder(dir string, logger *slog.Logger, buffer int) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("recording dir is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	tmpDir := filepath.Join(abs, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	r := &Recorder{
		dir:    abs,
		tmpDir: tmpDir,
		log:    logger,
		in:     make(chan recordMsg, buffer),
		done:   make(chan struct{}),
	}
	return r, nil
}

func (r *Recorder) OnSnapshot(s session.Snapshot) {
	r.send(recordMsg{snap: &s})
}

func (r *Recorder) OnEvent(e session.Event) {
	if fe, ok := e.(session.FoodEaten); ok {
		r.send(recordMsg{ate: fe.Name})
	}
}

func (r *Recorder) send(m recordMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.in <- m:
	default:
		n := r.dropped.Add(1)
		if n == 1 || n%100 == 0 {
			r.log.Warn("recorder falling behind, dropping rows", "dropped", n)
		}
	}
}

// Dropped counts rows lost because the writer fell behind.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Close flushes the current session and waits for the writer to finish.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.in)
	r.mu.Unlock()
	<-r.done
	return nil
}

// Written lists the finalized recordings in the order they were completed.
func (r *Recorder) Written() []string {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	return append([]string(nil), r.written...)
}

func (r *Recorder) loop() {
	defer close(r.done)

	var cur *sessionFile
	ate := ""
	// finished holds sessions whose file is already in place. Late snapshots
	// for them would otherwise reopen and truncate the recording.
	finished := map[string]bool{}
	finish := func() {
		if cur == nil {
			return
		}
		finished[cur.id] = true
		path, rows, err := cur.finalize()
		if err != nil {
			r.log.Error("failed to finalize recording", "session", cur.id, "error", err)
		} else if path != "" {
			r.log.Info("recording written", "session", cur.id, "path", path, "rows", rows)
			r.wmu.Lock()
			r.written = append(r.written, path)
			r.wmu.Unlock()
		}
		cur = nil
	}
	defer finish()

	for m := range r.in {
		if m.snap == nil {
			ate = m.ate
			continue
		}
		s := m.snap
		if s.SessionID == "" {
			finish()
			continue
		}
		if finished[s.SessionID] {
			r.log.Debug("ignoring snapshot for finished recording", "session", s.SessionID, "tick", s.Tick)
			ate = ""
			continue
		}
		if cur != nil && cur.id != s.SessionID {
			finish()
		}
		if cur == nil {
			f, err := r.open(s.SessionID)
			if err != nil {
				r.log.Error("failed to open recording", "session", s.SessionID, "error", err)
				continue
			}
			cur = f
		}
		if err := cur.write(rowFromSnapshot(*s, ate)); err != nil {
			r.log.Error("failed to record tick", "session", s.SessionID, "tick", s.Tick, "error", err)
		}
		ate = ""
		if s.State == session.StateGameOver {
			finish()
		}
	}
}

func rowFromSnapshot(s session.Snapshot, ate string) TickRow {
	row := TickRow{
		SessionID:  s.SessionID,
		Tick:       int32(s.Tick),
		State:      s.State.String(),
		Score:      int32(s.Score),
		Length:     int32(s.Length),
		HighScore:  int32(s.HighScore),
		IntervalMs: int32(s.IntervalMs),
		Heading:    s.Heading.String(),
		Palette:    int32(s.Palette),
		BodyX:      make([]int32, len(s.Snake)),
		BodyY:      make([]int32, len(s.Snake)),
		AteType:    ate,
		Reason:     string(s.Reason),
		Width:      int32(s.Grid.Width),
		Height:     int32(s.Grid.Height),
		CellSize:   int32(s.Grid.CellSize),
		RecordedAt: time.Now().UnixMilli(),
	}
	for i, p := range s.Snake {
		row.BodyX[i] = int32(p.X)
		row.BodyY[i] = int32(p.Y)
	}
	if s.Food != nil {
		row.FoodX = int32(s.Food.Pos.X)
		row.FoodY = int32(s.Food.Pos.Y)
		row.FoodType = s.Food.Name
	}
	return row
}

type sessionFile struct {
	id      string
	tmpPath string
	outPath string
	file    *os.File
	writer  *parquet.GenericWriter[TickRow]
	rows    int
}

func (r *Recorder) open(id string) (*sessionFile, error) {
	name := id + ".parquet"
	tmpPath := filepath.Join(r.tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	w := parquet.NewGenericWriter[TickRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
	)
	w.SetKeyValueMetadata("schema", tickRowSchema)
	return &sessionFile{
		id:      id,
		tmpPath: tmpPath,
		outPath: filepath.Join(r.dir, name),
		file:    f,
		writer:  w,
	}, nil
}

func (f *sessionFile) write(row TickRow) error {
	if _, err := f.writer.Write([]TickRow{row}); err != nil {
		return err
	}
	f.rows++
	return nil
}

// finalize closes the writer and moves the file into place. Empty recordings
// are removed and reported with an empty path.
func (f *sessionFile) finalize() (string, int, error) {
	closeErr := f.writer.Close()
	_ = f.file.Sync()
	fileErr := f.file.Close()
	if closeErr != nil {
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}
	if f.rows == 0 {
		_ = os.Remove(f.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(f.tmpPath, f.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return f.outPath, f.rows, nil
}

// ReadTicks loads a recording written by Recorder.
func ReadTicks(path string) ([]TickRow, error) {
	rows, err := parquet.ReadFile[TickRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
