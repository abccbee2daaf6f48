package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultRecentSize = 100

// Recent guarda as últimas mensagens de log para o endpoint /api/logs
type Recent struct {
	mu      sync.RWMutex
	entries []string
	max     int
}

func NewRecent(max int) *Recent {
	if max <= 0 {
		max = DefaultRecentSize
	}
	return &Recent{max: max}
}

func (r *Recent) add(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}

// Entries cópia das mensagens, da mais antiga para a mais recente
func (r *Recent) Entries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.entries...)
}

// Attach devolve um logger que também grava em r a partir de Info
func (r *Recent) Attach(l *zap.Logger) *zap.Logger {
	return l.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, &recentCore{recent: r, level: zapcore.InfoLevel})
	}))
}

type recentCore struct {
	recent *Recent
	level  zapcore.Level
	fields []zapcore.Field
}

func (c *recentCore) Enabled(l zapcore.Level) bool { return l >= c.level }

func (c *recentCore) With(fields []zapcore.Field) zapcore.Core {
	return &recentCore{
		recent: c.recent,
		level:  c.level,
		fields: append(append([]zapcore.Field{}, c.fields...), fields...),
	}
}

func (c *recentCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *recentCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", e.Time.Format("15:04:05"), e.Level.CapitalString(), e.Message)
	for _, f := range fields {
		if v, ok := enc.Fields[f.Key]; ok {
			fmt.Fprintf(&b, " %s=%v", f.Key, v)
		}
	}

	c.recent.add(b.String())
	return nil
}

func (c *recentCore) Sync() error { return nil }
