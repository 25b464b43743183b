package apify

import (
	"context"
	"encoding/json"
)

// DefaultPageSize is the number of dataset items requested per page.
const DefaultPageSize = 100

// DatasetIterator walks the items of one dataset, fetching pages on demand.
// It is finite and cannot be rewound; create a new iterator to read again.
//
//	it := apify.NewDatasetIterator(client, run.DefaultDatasetID, 0)
//	for it.Next(ctx) {
//		item := it.Item()
//	}
//	if err := it.Err(); err != nil { ... }
type DatasetIterator struct {
	client    Client
	datasetID string
	pageSize  int

	offset int
	buf    []json.RawMessage
	cur    json.RawMessage
	done   bool
	err    error
}

// NewDatasetIterator returns an iterator over datasetID. pageSize <= 0 uses
// DefaultPageSize.
func NewDatasetIterator(client Client, datasetID string, pageSize int) *DatasetIterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &DatasetIterator{client: client, datasetID: datasetID, pageSize: pageSize}
}

// Next advances to the next item, fetching a new page when the buffer is
// empty. It returns false when the dataset is exhausted or a fetch failed.
func (it *DatasetIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if len(it.buf) == 0 && !it.done {
		it.fill(ctx)
		if it.err != nil {
			return false
		}
	}
	if len(it.buf) == 0 {
		it.cur = nil
		return false
	}
	it.cur, it.buf = it.buf[0], it.buf[1:]
	return true
}

func (it *DatasetIterator) fill(ctx context.Context) {
	page, err := it.client.ListItems(ctx, it.datasetID, it.offset, it.pageSize)
	if err != nil {
		it.err = err
		return
	}
	it.buf = page.Items
	it.offset += len(page.Items)
	if len(page.Items) < it.pageSize || (page.Total >= 0 && it.offset >= page.Total) {
		it.done = true
	}
}

// Item returns the current item.
func (it *DatasetIterator) Item() json.RawMessage {
	return it.cur
}

// Err returns the first fetch error, if any.
func (it *DatasetIterator) Err() error {
	return it.err
}

// Collect drains the iterator into a slice in dataset order.
func Collect(ctx context.Context, it *DatasetIterator) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	if err := it.Err(); err != nil {
		return items, err
	}
	return items, nil
}
