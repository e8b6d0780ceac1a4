package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/lewisedginton/attendance_bot/internal/storage"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTemplatesRender(t *testing.T) {
	m := Default()

	out, err := m.Render(Classify, ClassifyData{Message: "wfh today"})
	require.NoError(t, err)
	assert.Contains(t, out, "Message: wfh today")
	assert.Contains(t, out, `"confidence"`)

	out, err = m.Render(Extract, ExtractData{
		Message:  "off next monday",
		Today:    "2025-03-24 (Monday)",
		Timezone: "Asia/Kolkata",
		Weekdays: []Weekday{{Name: "Monday", Date: "2025-03-31"}, {Name: "Tuesday", Date: "2025-03-25"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "- today: 2025-03-24 (Monday)")
	assert.Contains(t, out, "- next Monday: 2025-03-31")
	assert.Contains(t, out, "- next Tuesday: 2025-03-25")
	assert.Contains(t, out, "1 quarter = 60")

	out, err = m.Render(Query, QueryData{Query: "who is wfh", Today: "2025-03-24", Tomorrow: "2025-03-25"})
	require.NoError(t, err)
	assert.Contains(t, out, "Question: who is wfh")
	assert.Contains(t, out, `"start": "2025-03-25"`)
}

func TestRenderUnknownAndBadData(t *testing.T) {
	m := Default()

	_, err := m.Render("nope", nil)
	assert.Error(t, err)

	_, err = m.Render(Classify, map[string]string{})
	assert.Error(t, err, "missing keys must fail")
}

func TestOverrides(t *testing.T) {
	ctx := context.Background()
	fp := storage.NewDirProvider(t.TempDir())
	require.NoError(t, fp.Write(ctx, "prompts/classify.tmpl", []byte("Classify: {{.Message}}")))

	m, err := Load(ctx, fp, logger.NewNopLogger())
	require.NoError(t, err)

	out, err := m.Render(Classify, ClassifyData{Message: "late"})
	require.NoError(t, err)
	assert.Equal(t, "Classify: late", out)

	out, err = m.Render(Query, QueryData{Query: "q"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "You translate questions"))
}

func TestBrokenOverrideFailsLoad(t *testing.T) {
	ctx := context.Background()
	fp := storage.NewDirProvider(t.TempDir())
	require.NoError(t, fp.Write(ctx, "prompts/extract.tmpl", []byte("{{.Message")))

	_, err := Load(ctx, fp, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	for _, name := range Names {
		src, err := Builtin(name)
		require.NoError(t, err)
		assert.NotEmpty(t, src)
	}
}
