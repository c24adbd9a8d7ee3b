package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"text", ModeText, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode(), "a buffer is not a terminal")
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&buf, &buf, ModeAuto).IsTTY())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "# Datasets", FormatHeader(1, "Datasets"))
	assert.Equal(t, "### x", FormatHeader(3, "x"))
	assert.Equal(t, "# x", FormatHeader(0, "x"))
	assert.Equal(t, "- **Rows**: 3", FormatKeyValue("Rows", "3"))
	assert.Equal(t, "```yaml\na: 1\n```", FormatCodeBlock("yaml", "a: 1\n"))
}

func TestRenderer_PlainWhenPiped(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Header(1, "Datasets")
	r.Success("done")
	r.StatusLine("contratos", "created", "database/contratos.table")
	r.Warning("careful")

	assert.Equal(t, "Datasets\n✓ done\n  contratos            created  database/contratos.table\n", out.String())
	assert.Equal(t, "! careful\n", errOut.String())
}

func TestRenderer_Table(t *testing.T) {
	g := Grid{
		Headers: []string{"numero", "objeto"},
		Rows:    [][]string{{"1", "Café | Chá"}, {NullText, "linha\nquebrada"}},
	}

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, &buf, ModeMarkdown).Table(g)
		want := "| numero | objeto |\n" +
			"| --- | --- |\n" +
			"| 1 | Café \\| Chá |\n" +
			"| NULL | linha quebrada |\n" +
			"(2 rows)\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, &buf, ModeText).Table(g)
		assert.Contains(t, buf.String(), "NUMERO")
		assert.Contains(t, buf.String(), "Café | Chá")
		assert.Contains(t, buf.String(), "(2 rows)")
	})

	t.Run("no columns", func(t *testing.T) {
		var buf bytes.Buffer
		NewRenderer(&buf, &buf, ModeMarkdown).Table(Grid{})
		assert.Equal(t, "(0 rows)\n", buf.String())
	})
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, &buf, ModeJSON).JSON(map[string]int{"rows": 2}))
	assert.Equal(t, "{\n  \"rows\": 2\n}\n", buf.String())
}
