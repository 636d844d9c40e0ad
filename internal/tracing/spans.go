package tracing

// Span attribute keys for registry tracing.
// These constants define the semantic conventions for span attributes
// across registry operations.
const (
	// Run attributes
	AttrRunID       = "run.id"
	AttrRunStage    = "run.stage"
	AttrSizeClass   = "run.size_class"
	AttrDatasetPath = "run.dataset_path"
	AttrResultPath  = "run.result_path"
	AttrUpstreamID  = "run.upstream_id"

	// Lineage attributes
	AttrLineageDepth = "lineage.depth"

	// List attributes
	AttrListCount = "list.count"

	// Import attributes
	AttrImportSource = "import.source"
	AttrImportCount  = "import.run_count"

	// Error attributes
	AttrErrorType = "error.type"
)

// Span name prefixes for consistent naming.
const (
	SpanPrefixOp = "op."
)

// Event names for span events.
const (
	EventPathNormalized   = "path.normalized"
	EventUpstreamVerified = "upstream.verified"
	EventCacheHit         = "lineage.cache_hit"
	EventCacheMiss        = "lineage.cache_miss"
	EventLedgerParsed     = "ledger.parsed"
)
