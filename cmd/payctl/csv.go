package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type recipient struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

// readRecipients parses "address,amount" rows. A first row whose amount column
// is not a number is treated as a header. Rows with an unparsable amount are
// kept with amount 0 so the server reports them as rejections.
func readRecipients(r io.Reader) ([]recipient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var out []recipient
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected address,amount", line)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			if line == 1 {
				continue
			}
			amount = 0
		}
		out = append(out, recipient{Address: strings.TrimSpace(rec[0]), Amount: amount})
	}
	if len(out) == 0 {
		return nil, errors.New("no recipients in file")
	}
	return out, nil
}
