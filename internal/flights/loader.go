package flights

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

//go:embed data/flights.json
var defaultData embed.FS

// Decode reads a JSON array of flights.
func Decode(r io.Reader) ([]Flight, error) {
	var flights []Flight
	if err := json.NewDecoder(r).Decode(&flights); err != nil {
		return nil, fmt.Errorf("failed to decode flights: %w", err)
	}
	for i := range flights {
		for j := range flights[i].Seats {
			s := flights[i].Seats[j]
			if s.Type != "" && !s.Type.IsValid() {
				return nil, fmt.Errorf("flight %s seat %s: unknown seat type %q", flights[i].ID, s.SeatNo, s.Type)
			}
		}
	}
	return flights, nil
}

// LoadCatalog builds a MemoryCatalog from the JSON file at path, or from the
// embedded dataset when path is empty.
func LoadCatalog(path string) (*MemoryCatalog, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if path == "" {
		r, err = defaultData.Open("data/flights.json")
	} else {
		r, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open flights dataset: %w", err)
	}
	defer r.Close()

	flights, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return NewMemoryCatalog(flights)
}
