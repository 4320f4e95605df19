package popup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingSurface struct{ calls []string }

func (r *recordingSurface) Show(id, source string)    { r.calls = append(r.calls, "show:"+id+":"+source) }
func (r *recordingSurface) SetDetail(id, text string) { r.calls = append(r.calls, "detail:"+id+":"+text) }
func (r *recordingSurface) Dismiss(id string, done func()) {
	r.calls = append(r.calls, "dismiss:"+id)
	done()
}
func (r *recordingSurface) Close(id string) { r.calls = append(r.calls, "close:"+id) }

func TestLoggedForwardsCalls(t *testing.T) {
	rec := &recordingSurface{}
	s := NewLogged(rec, zap.NewNop().Sugar())

	doneCalled := false
	s.Show("1", "hello")
	s.SetDetail("1", "h")
	s.Dismiss("1", func() { doneCalled = true })
	s.Close("1")

	assert.Equal(t, []string{"show:1:hello", "detail:1:h", "dismiss:1", "close:1"}, rec.calls)
	assert.True(t, doneCalled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 80))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "жжж...", Truncate("жжжж", 3))
}
