// Package cli provides output formatting for Kotae command results.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kotae-ai/kotae/internal/service"
	"github.com/kotae-ai/kotae/pkg/utils"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// OutputText is the human-readable default.
	OutputText OutputFormat = "text"
	// OutputJSON emits the raw response for other tools.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a -output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer renders an answer result.
func WriteAnswer(w io.Writer, res *service.AnswerResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(w, res.Answer.Text)
	if len(res.Answer.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, src := range res.Answer.Sources {
			fmt.Fprintf(w, "  - %s\n", src)
		}
	}
	if !res.Answer.Success {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "(no reliable answer could be generated)")
	}
	return nil
}

// WritePassages renders the supporting passages of an answer, for -verbose.
func WritePassages(w io.Writer, res *service.AnswerResult) {
	if len(res.Passages) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Passages:")
	for _, p := range res.Passages {
		marker := ""
		if p.BelowThreshold {
			marker = " (low confidence)"
		}
		fmt.Fprintf(w, "  [%.3f]%s %s #%d: %s\n",
			p.Score, marker, p.Source, p.ChunkIndex, utils.Truncate(p.Text, 120))
	}
}

// WriteStatus renders a status snapshot.
func WriteStatus(w io.Writer, st *service.Status, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(w, "index_ready:        %t\n", st.IndexReady)
	fmt.Fprintf(w, "can_embed:          %t\n", st.CanEmbed)
	fmt.Fprintf(w, "can_generate:       %t\n", st.CanGenerate)
	fmt.Fprintf(w, "vectors:            %d\n", st.Index.Vectors)
	fmt.Fprintf(w, "dimension:          %d\n", st.Index.Dimension)
	fmt.Fprintf(w, "embedding_cache:    %d\n", st.EmbeddingCache)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", st.DiskUsageBytes)
	}
	for _, c := range st.Corpora {
		fmt.Fprintf(w, "\ncorpus %s:\n", c.Corpus)
		fmt.Fprintf(w, "  documents:  %d\n", c.Counts.Documents)
		fmt.Fprintf(w, "  processed:  %d\n", c.Counts.Processed)
		fmt.Fprintf(w, "  failed:     %d\n", c.Counts.Failed)
		fmt.Fprintf(w, "  chunks:     %d\n", c.Counts.Chunks)
		fmt.Fprintf(w, "  vectors:    %d\n", c.Vectors)
	}
	return nil
}
