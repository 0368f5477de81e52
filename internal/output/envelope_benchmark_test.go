package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func BenchmarkNormalizeData(b *testing.B) {
	b.Run("json_raw_message_array", func(b *testing.B) {
		raw := json.RawMessage(`[{"model_id":"en-es","source":"en"},{"model_id":"en-fr","source":"en"}]`)
		for b.Loop() {
			NormalizeData(raw)
		}
	})

	b.Run("already_normalized_map", func(b *testing.B) {
		data := map[string]any{"model_id": "en-es", "source": "en"}
		for b.Loop() {
			NormalizeData(data)
		}
	})

	b.Run("struct_to_map", func(b *testing.B) {
		data := model{ModelID: "en-es", Source: "en", Target: "es"}
		for b.Loop() {
			NormalizeData(data)
		}
	})
}

func BenchmarkWriterOK(b *testing.B) {
	models := make([]model, 50)
	for i := range models {
		models[i] = model{ModelID: fmt.Sprintf("en-x%d", i), Source: "en", Target: "x"}
	}

	for _, format := range []Format{FormatJSON, FormatYAML, FormatStyled} {
		b.Run(fmt.Sprint(format), func(b *testing.B) {
			var buf bytes.Buffer
			w := New(Options{Format: format, Writer: &buf})
			for b.Loop() {
				buf.Reset()
				_ = w.OK(models)
			}
		})
	}
}
