package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, 2, Min(2, 5))
	assert.Equal(t, -3, Min(4, -3))
	assert.Equal(t, 5, Max(2, 5))
	assert.Equal(t, 0.5, Max(0.5, -1.0))
	assert.Equal(t, "a", Min("b", "a"))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "1.50s", FormatTime(1500*time.Millisecond))
	assert.Equal(t, "2m 5.00s", FormatTime(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h 1m 1.00s", FormatTime(time.Hour+time.Minute+time.Second))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "50.000%", FormatRate(0.5))
	assert.Equal(t, "0.100%", FormatRate(0.001))
}

func TestDecorateText(t *testing.T) {
	assert.Equal(t, SuccessColor+"ok"+DefaultColor, DecorateText("ok", SuccessMessage))
	assert.Equal(t, ErrorColor+"ko"+DefaultColor, DecorateText("ko", ErrorMessage))
	assert.Equal(t, StatusColor+"stage 1"+DefaultColor, DecorateText("stage 1", StatusMessage))
	assert.Equal(t, "raw", DecorateText("raw", MessageType(42)))
}

func TestDetectFileContentType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cascade.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stage#": 0, "stages": []}`), 0644))

	ct, err := DetectFileContentType(path)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", ct)

	_, err = DetectFileContentType(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

// syncBuffer guards the buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.buf.String()
}

func TestProgressIndicator(t *testing.T) {
	var out syncBuffer
	ind := NewProgressIndicatorWriter(&out, "Training stage 1...", time.Millisecond)
	ind.Start()
	time.Sleep(30 * time.Millisecond)
	ind.SetMessage("Training stage 2...")
	time.Sleep(30 * time.Millisecond)
	ind.StopMsg = "done"
	ind.Stop()

	s := out.String()
	assert.Contains(t, s, "Training stage 1...")
	assert.Contains(t, s, "Training stage 2...")
	assert.True(t, strings.HasSuffix(s, "done"))
}
