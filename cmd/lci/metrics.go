package main

import (
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"

	"github.com/standardbeagle/lci/internal/metrics"
)

// dumpMetrics writes every counter and histogram crep has updated so far
// in this process, in the Prometheus text exposition format, the same
// format a real /metrics HTTP endpoint would serve (that endpoint itself
// is out of scope for this CLI).
func dumpMetrics(w io.Writer) error {
	families, err := metrics.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
