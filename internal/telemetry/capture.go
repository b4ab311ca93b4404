package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// lockedBuffer — буфер, общий для всех производных обработчиков.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Capture — обработчик slog, который дублирует записи в буфер.
//
// Воркер выполняется с таким логгером, а накопленный текст
// возвращается контроллеру вместе с результатом (или ошибкой).
type Capture struct {
	buf  *lockedBuffer
	text slog.Handler
	next slog.Handler
}

// NewCapture создаёт обработчик. next может быть nil — тогда записи
// только накапливаются. level ограничивает то, что попадает в буфер.
func NewCapture(next slog.Handler, level slog.Leveler) *Capture {
	buf := &lockedBuffer{}
	return &Capture{
		buf:  buf,
		text: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}),
		next: next,
	}
}

// Logger возвращает логгер поверх обработчика.
func (c *Capture) Logger() *slog.Logger {
	return slog.New(c)
}

// String возвращает накопленный лог.
func (c *Capture) String() string {
	return c.buf.String()
}

func (c *Capture) Enabled(ctx context.Context, level slog.Level) bool {
	if c.text.Enabled(ctx, level) {
		return true
	}
	return c.next != nil && c.next.Enabled(ctx, level)
}

func (c *Capture) Handle(ctx context.Context, r slog.Record) error {
	if c.text.Enabled(ctx, r.Level) {
		if err := c.text.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if c.next != nil && c.next.Enabled(ctx, r.Level) {
		return c.next.Handle(ctx, r)
	}
	return nil
}

func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &Capture{buf: c.buf, text: c.text.WithAttrs(attrs)}
	if c.next != nil {
		out.next = c.next.WithAttrs(attrs)
	}
	return out
}

func (c *Capture) WithGroup(name string) slog.Handler {
	out := &Capture{buf: c.buf, text: c.text.WithGroup(name)}
	if c.next != nil {
		out.next = c.next.WithGroup(name)
	}
	return out
}
