package export

import (
	"encoding/json"
	"io"

	"backend-recordpath/internal/tracking"
)

type document struct {
	Journey tracking.Journey `json:"journey"`
	Summary tracking.Summary `json:"summary"`
}

func EncodeJSON(w io.Writer, j tracking.Journey) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Journey: j, Summary: j.Summary()})
}
