package alarm

const (
	// IDOffset namespaces duration events above standard ones in the flat
	// timer keyspace. Raw store IDs must never reach it.
	IDOffset int64 = 1_000_000_000

	// MaxRawID is the largest raw identifier a store may hand out.
	MaxRawID = IDOffset - 1

	// InvalidID is the sentinel for unparseable or missing identifiers.
	InvalidID int64 = -1
)

// EncodeID maps a kind and raw store identifier into the flat keyspace.
func EncodeID(kind Kind, rawID int64) int64 {
	if kind == KindDuration {
		return rawID + IDOffset
	}

	return rawID
}

// KindOfID classifies a namespaced identifier.
func KindOfID(id int64) Kind {
	if id >= IDOffset {
		return KindDuration
	}

	return KindStandard
}

// RawID strips the namespace offset, recovering the store identifier.
func RawID(id int64) int64 {
	if id >= IDOffset {
		return id - IDOffset
	}

	return id
}

// ValidRawID reports whether a raw identifier fits the namespace invariant.
// Stores must reject identifiers outside this range, otherwise encode/decode
// would silently misclassify the event kind.
func ValidRawID(rawID int64) bool {
	return rawID > 0 && rawID <= MaxRawID
}
