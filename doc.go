// Package flattenjson converts streams of arbitrarily nested JSON objects
// into a relational set of tabular outputs (CSV and/or XLSX): one "main"
// table plus one child table per repeating nested-object collection, with
// synthetic link columns that reconstruct the parent-child relationships.
//
// # Basic Usage
//
//	cfg := flattenjson.NewConfig("out",
//	    flattenjson.WithCSV(),
//	    flattenjson.WithMainTableName("main"),
//	)
//	fl, err := flattenjson.NewFlattener(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	front := flattenjson.NewNDJSONFrontEnd(reader)
//	pl := flattenjson.NewPipeline(front, fl)
//	if err := pl.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Memory Usage
//
// The flattening pipeline streams records through a bounded channel, so
// the input as a whole is never held in memory: each record is decoded on
// its own, its rows are written to per-table staging CSVs as soon as it is
// flattened, and only the cumulative table schemas persist in the consumer
// goroutine. SAXFrontEnd is the exception within its matched subtree: it
// reads the whole matched array or object into memory before forwarding
// its elements. Staging CSVs are rewritten into final artifacts only after the producer
// signals end-of-input.
//
// # Output Layout
//
//	<output>/csv/<table>.csv    (when WithCSV is set)
//	<output>/output.xlsx        (when WithXLSX is set)
//	<output>/table_metadata.json
//
// # Supported Front Ends
//
//   - NDJSONFrontEnd: newline-delimited JSON, with transparent gzip,
//     bzip2, xz, and zstd decompression.
//   - SAXFrontEnd: single large JSON document, streaming a selector path
//     down to an array or object whose elements become individual records.
//   - IterableFrontEnd: caller-pushed one-value-at-a-time ingestion, for
//     embedding in a host runtime.
package flattenjson
