package reporting

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/ledger"
)

// Bucket is one slice of a revenue series.
type Bucket struct {
	Key   string // "2006-01-02" for day buckets, "1".."12" for month buckets
	Total decimal.Decimal
	Count int

	ord int
}

// Series is revenue collected over a reporting window.
type Series struct {
	Period  Period
	Window  Window
	Buckets []Bucket
	Total   decimal.Decimal
	Count   int
}

// RevenueSeries buckets settled payments whose paid date falls in the
// period's window at now. Buckets are sparse and sorted ascending by key.
func RevenueSeries(payments []ledger.Payment, period Period, now time.Time) Series {
	w := period.Window(now)
	loc := now.Location()

	byOrd := make(map[int]*Bucket)
	total := decimal.Zero
	count := 0

	for _, p := range payments {
		if p.Status != ledger.StatusPaid || p.PaidDate == nil {
			continue
		}
		paid := p.PaidDate.In(loc)
		if !w.Contains(paid) {
			continue
		}

		ord, key := bucketOf(paid, w.Granularity)
		b, ok := byOrd[ord]
		if !ok {
			b = &Bucket{Key: key, Total: decimal.Zero, ord: ord}
			byOrd[ord] = b
		}
		b.Total = b.Total.Add(p.Amount)
		b.Count++

		total = total.Add(p.Amount)
		count++
	}

	buckets := make([]Bucket, 0, len(byOrd))
	for _, b := range byOrd {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].ord < buckets[j].ord })

	return Series{
		Period:  period,
		Window:  w,
		Buckets: buckets,
		Total:   total,
		Count:   count,
	}
}

// bucketOf returns a sortable ordinal and the display key for t.
func bucketOf(t time.Time, g Granularity) (int, string) {
	if g == GranularityMonth {
		m := int(t.Month())
		return m, strconv.Itoa(m)
	}
	return t.Year()*10000 + int(t.Month())*100 + t.Day(), t.Format("2006-01-02")
}
