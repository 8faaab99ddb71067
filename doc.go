// Package tabread is a high-throughput parallel reader for delimited
// text. It detects a file's dialect by sampling, splits the input into
// chunks resynchronized onto verified record starts, parses the chunks
// concurrently into fixed-width typed value slots, reconciles type
// promotions across chunks, and streams the rows into a sink in input
// order.
//
// # Layout
//
//	pkg/reader    - the parsing engine: field parsers, line scanner,
//	                dialect sampler, chunk coordinator
//	pkg/columnar  - typed in-memory table and the sink that builds it
//	pkg/input     - file access: mmap plus transparent gzip/zstd
//	pkg/config    - YAML and environment configuration
//	pkg/errors    - structured errors with types and fatality
//	pkg/logger    - zap-based structured logging
//	pkg/metrics   - Prometheus counters and histograms
//	cmd/tabread   - the CLI
//
// # Quick start
//
//	src, err := input.OpenFile("data.csv.gz")
//	if err != nil { ... }
//	defer src.Close()
//
//	sink := columnar.NewTableSink()
//	summary, err := reader.Read(ctx, src.Data(), sink, reader.DefaultReadOptions())
//	if err != nil { ... }
//
//	table := sink.Table()
//	fmt.Println(summary.Rows, table.Names())
//
// Values flow through 8-byte untagged slots; strings are zero-copy
// references into the input buffer until a sink copies them out, so no
// intermediate row representation is allocated during parsing.
package tabread
