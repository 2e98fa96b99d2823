package txn

// Config is the spec's journal configuration, supplied at Mount.
type Config struct {
	// StoreSizeSectors is the length, in sectors, of the reserved region
	// at the tail of the volume. Must be >= 3. Because the engine's
	// free-space check also leaves the sector just before the master
	// unused, a transaction can buffer an n-sector write only when
	// StoreSizeSectors >= n+3 plus the sectors already buffered, so a
	// 3-sector store accepts no journaled write at all.
	StoreSizeSectors uint64
	// OverwriteExisting discards any on-disk master and formats fresh.
	OverwriteExisting bool
	// ReplayAfterMount attempts recovery of an incomplete commit found on
	// disk during Mount.
	ReplayAfterMount bool
	// ForceFormat indicates the caller intends to reformat the file
	// system; like OverwriteExisting it forces a fresh master, but is
	// tracked separately so callers can distinguish their own intent from
	// "the on-disk master was simply absent or garbage".
	ForceFormat bool
}

func (c Config) fresh() bool {
	return c.OverwriteExisting || c.ForceFormat
}
