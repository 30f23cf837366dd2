package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// PrettyHandler writes each record as an indented JSON object. It is meant for
// log files a person reads while playing, not for throughput.
type PrettyHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	opts  slog.HandlerOptions
	attrs map[string]any
	// group is the path of open groups; attrs added later nest under it.
	group []string
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{mu: &sync.Mutex{}, w: w, attrs: map[string]any{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	out := cloneMap(h.attrs)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	out[slog.TimeKey] = ts.Format(time.RFC3339Nano)
	out[slog.LevelKey] = r.Level.String()
	out[slog.MessageKey] = r.Message
	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		out[slog.SourceKey] = fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	dst := descend(out, h.group)
	r.Attrs(func(a slog.Attr) bool {
		put(dst, a)
		return true
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		buf.Reset()
		fmt.Fprintf(&buf, "{\"time\":%q,\"level\":%q,\"msg\":%q,\"encodeError\":%q}\n",
			out[slog.TimeKey], r.Level.String(), r.Message, err.Error())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = cloneMap(h.attrs)
	dst := descend(next.attrs, h.group)
	for _, a := range attrs {
		put(dst, a)
	}
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = append(append([]string(nil), h.group...), name)
	return &next
}

func descend(m map[string]any, path []string) map[string]any {
	for _, g := range path {
		child, ok := m[g].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[g] = child
		}
		m = child
	}
	return m
}

func put(dst map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if v.Kind() == slog.KindGroup {
		target := dst
		// Inline groups with an empty key.
		if a.Key != "" {
			target = descend(dst, []string{a.Key})
		}
		for _, ga := range v.Group() {
			put(target, ga)
		}
		return
	}
	dst[a.Key] = plain(v)
}

func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		}
		return v.Any()
	}
	return v.Any()
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+4)
	for k, v := range m {
		if child, ok := v.(map[string]any); ok {
			v = cloneMap(child)
		}
		out[k] = v
	}
	return out
}
