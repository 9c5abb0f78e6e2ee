package sqf

import (
	"fmt"

	"github.com/xtxerr/friskstat/internal/errors"
)

// YearBucket holds every record of one year in ingestion order.
// Buckets are created and filled by a Database; callers only read them.
type YearBucket struct {
	year    int
	records []Record
}

func newYearBucket(year int) *YearBucket {
	return &YearBucket{year: year}
}

// add appends r. A record from another year is rejected so that every
// record in the bucket shares its year.
func (b *YearBucket) add(r Record) error {
	if r.year != b.year {
		return fmt.Errorf("record year %d into bucket %d: %w", r.year, b.year, errors.ErrYearMismatch)
	}
	b.records = append(b.records, r)
	return nil
}

// Year returns the bucket's year.
func (b *YearBucket) Year() int {
	return b.year
}

// Len returns the number of records in the bucket.
func (b *YearBucket) Len() int {
	return len(b.records)
}

// Records returns a copy of the bucket's records in ingestion order.
func (b *YearBucket) Records() []Record {
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out
}

// count returns how many records satisfy pred.
func (b *YearBucket) count(pred func(Record) bool) int {
	n := 0
	for _, r := range b.records {
		if pred(r) {
			n++
		}
	}
	return n
}
