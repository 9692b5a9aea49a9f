// Package ingest implements C2: a lazy, finite sequence of bounded-size
// batches of typed columnar records from partitioned CSV input. Each
// batch carries the raw event columns plus the four derived time
// dimensions, computed once per batch via internal/timedim.
//
// Grounded on original_source/src/core/data_loader.py's schema
// (explicit, pinned column types rather than inference) and on the
// teacher's batch-oriented ingestion style (internal/import/importer.go's
// processAllBatches loop).
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/event"
	"github.com/adcube-dev/adcube/internal/timedim"
)

// expected CSV header, in order, per spec.md §3.1.
var wantHeader = []string{
	"ts", "type", "auction_id", "advertiser_id", "publisher_id",
	"bid_price", "user_id", "total_price", "country",
}

// Ingestor streams Batches of at most BatchSize rows from a directory of
// CSV files, discovered by glob and sorted by path.
type Ingestor struct {
	files     []string
	batchSize int
	enc       *timedim.Encoder

	fileIdx int
	cur     *csv.Reader
	curFile *os.File
}

// New discovers data-dir's CSV files (sorted by path, per spec.md §6) and
// returns an Ingestor bound to the given time encoder and batch size.
func New(dataDir string, batchSize int, enc *timedim.Encoder) (*Ingestor, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, apperr.Wrap(apperr.Ingest, "glob data dir "+dataDir, err)
	}
	if len(matches) == 0 {
		return nil, apperr.New(apperr.Ingest, "no CSV files found in "+dataDir)
	}
	sort.Strings(matches)

	if batchSize <= 0 {
		batchSize = 1 << 20
	}

	return &Ingestor{files: matches, batchSize: batchSize, enc: enc}, nil
}

// Files returns the sorted list of input files this ingestor will read.
// Used by C5 to build the fallback store from the same input set.
func (in *Ingestor) Files() []string { return in.files }

// Next returns the next batch, or (nil, io.EOF) once the input is
// exhausted. Nulls in bid_price/total_price are preserved as empty CSV
// fields. Any read/parse error is fatal (apperr.Ingest), per spec.md §4.3.
func (in *Ingestor) Next() (*event.Batch, error) {
	b := event.NewBatch(in.batchSize)

	for b.Len() < in.batchSize {
		if in.cur == nil {
			if err := in.openNextFile(); err != nil {
				if err == io.EOF {
					if b.Len() > 0 {
						return b, nil
					}
					return nil, io.EOF
				}
				return nil, err
			}
		}

		record, err := in.cur.Read()
		if err == io.EOF {
			in.closeCurrent()
			continue
		}
		if err != nil {
			in.closeCurrent()
			return nil, apperr.Wrap(apperr.Ingest, "read csv record", err)
		}

		if err := appendRow(b, record, in.enc); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (in *Ingestor) openNextFile() error {
	for in.fileIdx < len(in.files) {
		path := in.files[in.fileIdx]
		in.fileIdx++

		f, err := os.Open(path)
		if err != nil {
			return apperr.Wrap(apperr.Ingest, "open "+path, err)
		}

		r := csv.NewReader(f)
		r.ReuseRecord = true
		header, err := r.Read()
		if err != nil {
			f.Close()
			return apperr.Wrap(apperr.Ingest, "read header of "+path, err)
		}
		if err := checkHeader(header, path); err != nil {
			f.Close()
			return err
		}

		in.curFile = f
		in.cur = r
		return nil
	}
	return io.EOF
}

func (in *Ingestor) closeCurrent() {
	if in.curFile != nil {
		in.curFile.Close()
	}
	in.cur = nil
	in.curFile = nil
}

func checkHeader(got []string, path string) error {
	if len(got) != len(wantHeader) {
		return apperr.New(apperr.Ingest, "schema mismatch in "+path+": wrong column count")
	}
	for i, w := range wantHeader {
		if got[i] != w {
			return apperr.New(apperr.Ingest, "schema mismatch in "+path+": expected column "+w+" at position "+strconv.Itoa(i))
		}
	}
	return nil
}

// appendRow parses one CSV record into b's columns, computing the
// derived time dimensions for this row via enc.
func appendRow(b *event.Batch, rec []string, enc *timedim.Encoder) error {
	ts, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return apperr.Wrap(apperr.Ingest, "parse ts", err)
	}
	typ, ok := event.TypeFromString(rec[1])
	if !ok {
		return apperr.New(apperr.Ingest, "unknown event type: "+rec[1])
	}
	advertiserID, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return apperr.Wrap(apperr.Ingest, "parse advertiser_id", err)
	}
	publisherID, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return apperr.Wrap(apperr.Ingest, "parse publisher_id", err)
	}

	bidPrice, bidNull, err := parseNullableFloat(rec[5])
	if err != nil {
		return apperr.Wrap(apperr.Ingest, "parse bid_price", err)
	}
	totalPrice, totalNull, err := parseNullableFloat(rec[7])
	if err != nil {
		return apperr.Wrap(apperr.Ingest, "parse total_price", err)
	}

	dims, err := enc.Encode(ts)
	if err != nil {
		return err
	}

	b.TS = append(b.TS, ts)
	b.Type = append(b.Type, typ)
	b.AuctionID = append(b.AuctionID, rec[2])
	b.AdvertiserID = append(b.AdvertiserID, advertiserID)
	b.PublisherID = append(b.PublisherID, publisherID)
	b.BidPrice = append(b.BidPrice, bidPrice)
	b.BidPriceNull = append(b.BidPriceNull, bidNull)
	b.UserID = append(b.UserID, rec[6])
	b.TotalPrice = append(b.TotalPrice, totalPrice)
	b.TotalPriceNull = append(b.TotalPriceNull, totalNull)
	b.Country = append(b.Country, rec[8])
	b.Day = append(b.Day, dims.Day)
	b.Hour = append(b.Hour, dims.Hour)
	b.Minute = append(b.Minute, dims.Minute)
	b.Week = append(b.Week, dims.Week)

	return nil
}

func parseNullableFloat(s string) (float64, bool, error) {
	if s == "" {
		return 0, true, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, false, nil
}
