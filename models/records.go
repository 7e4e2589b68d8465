package models

// Record is one raw input row (sale, class session, lead, payroll line, ...).
// No schema is enforced; readers coalesce missing fields through the helpers
// in the services package.
type Record map[string]any

// Dataset names one kind of raw input array.
type Dataset string

const (
	DatasetSales             Dataset = "sales"
	DatasetSessions          Dataset = "sessions"
	DatasetPayroll           Dataset = "payroll"
	DatasetCheckins          Dataset = "checkins"
	DatasetLeads             Dataset = "leads"
	DatasetDiscounts         Dataset = "discounts"
	DatasetExpirations       Dataset = "expirations"
	DatasetLateCancellations Dataset = "lateCancellations"
	DatasetNewClients        Dataset = "newClients"
)

// AllDatasets lists every dataset a source may supply, in load order.
func AllDatasets() []Dataset {
	return []Dataset{
		DatasetSales,
		DatasetSessions,
		DatasetPayroll,
		DatasetCheckins,
		DatasetLeads,
		DatasetDiscounts,
		DatasetExpirations,
		DatasetLateCancellations,
		DatasetNewClients,
	}
}

// DataSources holds the already-fetched input arrays keyed by dataset.
// The crawler only reads from it.
type DataSources map[Dataset][]Record

// Get returns the records for ds, or nil when the dataset was not supplied.
func (d DataSources) Get(ds Dataset) []Record {
	if d == nil {
		return nil
	}
	return d[ds]
}

// Count returns the total number of records across all datasets.
func (d DataSources) Count() int {
	n := 0
	for _, recs := range d {
		n += len(recs)
	}
	return n
}
