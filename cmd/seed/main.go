package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"

	"flightdesk/internal/flights"
	"flightdesk/internal/shared/config"

	"github.com/joho/godotenv"
)

var cities = []string{"Dubai", "Kolkata", "Mumbai", "Delhi", "Singapore", "London", "Doha", "Bangkok"}

var airlines = []struct {
	name string
	code string
}{
	{"Emirates", "EK"},
	{"IndiGo", "6E"},
	{"Air India", "AI"},
	{"Singapore Airlines", "SQ"},
	{"Qatar Airways", "QR"},
}

// Seeder generates a flights dataset the catalog can load
type Seeder struct {
	rng     *rand.Rand
	flights int
	rows    int
	letters string
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	out := flag.String("out", cfg.Catalog.DataPath, "file to write, stdout when empty")
	count := flag.Int("flights", 20, "number of flights")
	rows := flag.Int("rows", 30, "seat rows per flight")
	letters := flag.String("letters", "ABCDEF", "seat letters per row, window seats at both ends")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *count <= 0 || *rows <= 0 || len(*letters) < 2 {
		log.Fatalf("flights and rows must be positive and at least two seat letters are needed")
	}

	s := &Seeder{
		rng:     rand.New(rand.NewPCG(*seed, *seed)),
		flights: *count,
		rows:    *rows,
		letters: strings.ToUpper(*letters),
	}

	data := s.Generate()

	// refuse to write a dataset the catalog would reject
	if _, err := flights.NewMemoryCatalog(data); err != nil {
		log.Fatalf("Generated dataset is invalid: %v", err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		log.Fatalf("Failed to write flights: %v", err)
	}

	if *out != "" {
		fmt.Printf("✅ Wrote %d flights with %d seats each to %s\n", len(data), s.rows*len(s.letters), *out)
	}
}

// Generate builds the configured number of flights
func (s *Seeder) Generate() []flights.Flight {
	out := make([]flights.Flight, 0, s.flights)
	for i := 1; i <= s.flights; i++ {
		out = append(out, s.flight(i))
	}
	return out
}

func (s *Seeder) flight(n int) flights.Flight {
	from := cities[s.rng.IntN(len(cities))]
	to := cities[s.rng.IntN(len(cities))]
	for to == from {
		to = cities[s.rng.IntN(len(cities))]
	}
	airline := airlines[s.rng.IntN(len(airlines))]

	departHour := 5 + s.rng.IntN(16)
	durationMin := 90 + s.rng.IntN(8)*30
	arriveMin := departHour*60 + durationMin
	base := 4000 + s.rng.IntN(40)*500

	stops := 0
	layovers := []*string{}
	if s.rng.IntN(4) == 0 {
		stops = 1
		via := cities[s.rng.IntN(len(cities))]
		layovers = append(layovers, &via)
	}

	return flights.Flight{
		ID:           fmt.Sprintf("F%d", n),
		Mode:         "flight",
		Origin:       from,
		Destination:  to,
		Date:         fmt.Sprintf("2020-02-%02d", 1+s.rng.IntN(28)),
		Departure:    fmt.Sprintf("%02d:%02d", departHour, 15*s.rng.IntN(4)),
		Arrival:      fmt.Sprintf("%02d:%02d", (arriveMin/60)%24, arriveMin%60),
		Price:        base,
		Airline:      airline.name,
		FlightNumber: fmt.Sprintf("%s-%d", airline.code, 100+s.rng.IntN(900)),
		Stops:        stops,
		Layovers:     layovers,
		TotalTime:    fmt.Sprintf("%dh %dm", durationMin/60, durationMin%60),
		Seats:        s.seats(base),
	}
}

func (s *Seeder) seats(base int) []flights.Seat {
	seats := make([]flights.Seat, 0, s.rows*len(s.letters))
	for row := 1; row <= s.rows; row++ {
		for i, letter := range s.letters {
			typ := seatType(i, len(s.letters))
			seats = append(seats, flights.Seat{
				SeatNo: fmt.Sprintf("%d%c", row, letter),
				Type:   typ,
				// about one seat in ten starts out sold
				Available: s.rng.IntN(10) != 0,
				Price:     base + surcharge(typ),
			})
		}
	}
	return seats
}

// seatType treats the outer seats as windows and the seats next to the
// middle of the row as aisles.
func seatType(i, width int) flights.SeatType {
	switch {
	case i == 0 || i == width-1:
		return flights.SeatTypeWindow
	case i == width/2-1 || i == width/2:
		return flights.SeatTypeAisle
	default:
		return flights.SeatTypeMiddle
	}
}

func surcharge(t flights.SeatType) int {
	switch t {
	case flights.SeatTypeWindow:
		return 600
	case flights.SeatTypeAisle:
		return 300
	}
	return 0
}
