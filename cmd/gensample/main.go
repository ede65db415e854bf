package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

var columns = []string{
	"path", "file_size", "n_load", "text_sz", "ro_sz", "data_sz", "text_ratio",
	"text_entropy", "e8_cnt", "e9_cnt", "branch_density_per_kb", "zeros_ratio_total",
	"bcj_final", "kanzi_final", "kanzi_ratio",
}

func main() {
	var (
		outPath = flag.String("out", "data/sample.csv", "Output CSV path")
		rows    = flag.Int("rows", 400, "Number of executables to generate")
		copies  = flag.Int("copies", 2, "Directories each executable appears in")
		seed    = flag.Int64("seed", 1, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating sample dataset...\n")
	fmt.Printf("  Rows: %d x %d copies\n", *rows, *copies)
	fmt.Printf("  Output: %s\n", *outPath)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create output file")
	}
	defer f.Close()

	if err := generateDataset(f, *rows, *copies, rand.New(rand.NewSource(*seed))); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate data")
	}

	fmt.Printf("✓ Generated %d rows\n", *rows**copies)
}

// generateDataset writes synthetic feature rows. KanziEXE tends to win on large, branch
// dense text sections; BCJ wins on small or data heavy binaries.
func generateDataset(out io.Writer, rows, copies int, rng *rand.Rand) error {
	w := csv.NewWriter(out)
	if err := w.Write(columns); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		// log-uniform between 4 KiB and 4 MiB
		size := math.Exp(math.Log(4096) + rng.Float64()*math.Log(1024))
		textRatio := 0.2 + rng.Float64()*0.6
		roRatio := (1 - textRatio) * rng.Float64()
		text := size * textRatio
		density := 2 + rng.Float64()*18 // branches per KiB
		e8 := text / 1024 * density * 0.6
		e9 := text / 1024 * density * 0.1
		zeros := rng.Float64() * 0.3

		base := size * (0.55 - 0.2*zeros)
		bcj := base * (1 - 0.003*density)
		kanzi := base*(1-0.002*density-0.00004*density*math.Log2(size/4096)) + 96
		kanzi *= 1 + 0.01*rng.NormFloat64()

		for c := 0; c < copies; c++ {
			record := []string{
				fmt.Sprintf("/opt/set%d/bin/prog%04d", c, i),
				itoa(size), strconv.Itoa(2 + rng.Intn(3)),
				itoa(text), itoa(size * roRatio), itoa(size * (1 - textRatio - roRatio)),
				ftoa(textRatio), ftoa(5.5 + rng.Float64()*1.5),
				itoa(e8), itoa(e9), ftoa(density), ftoa(zeros),
				itoa(bcj), itoa(kanzi), ftoa(kanzi / size),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func itoa(v float64) string { return strconv.FormatInt(int64(math.Round(v)), 10) }
func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
