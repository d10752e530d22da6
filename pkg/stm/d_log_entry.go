package stm

type entryKind uint8

const (
	// entryRead: var has been read, nothing written yet.
	entryRead entryKind = iota
	// entryWrite: var has been written without a prior read. There is no
	// original to validate, so commit never checks it.
	entryWrite
	// entryReadWrite: read first, then written. Checked at commit.
	entryReadWrite
	// entryReadObsolete: read on an abandoned path. Registered for wakeup,
	// never consistency-checked.
	entryReadObsolete
	// entryReadObsoleteWrite: read on an abandoned path, then written.
	entryReadObsoleteWrite
)

// LogEntry records what one attempt did to one Var: what it read, what it
// wrote, and whether commit has to validate the read. It is owned by the
// attempt that created it and is never shared between goroutines.
type LogEntry struct {
	kind     entryKind
	original *Value // committed handle the first read observed
	pending  *Value // uncommitted write, if any
}

func NewReadEntry(h *Value) LogEntry {
	return LogEntry{kind: entryRead, original: h}
}

func NewWriteEntry(h *Value) LogEntry {
	return LogEntry{kind: entryWrite, pending: h}
}

// Read returns the handle the transaction currently sees and, if the var
// was read at some point, the committed handle that observation came from.
// Reading an obsolete entry is a fresh observation: it upgrades the entry
// back to its checked counterpart.
func (e *LogEntry) Read() (value, original *Value) {
	switch e.kind {
	case entryRead:
		return e.original, e.original
	case entryWrite:
		return e.pending, nil
	case entryReadWrite:
		return e.pending, e.original
	case entryReadObsolete:
		e.kind = entryRead
		return e.original, e.original
	case entryReadObsoleteWrite:
		e.kind = entryReadWrite
		return e.pending, e.original
	default:
		panic("unknown log entry state")
	}
}

// Write records h as the pending value. Unlike Read it is not a fresh
// observation, so obsolete markers stay in place.
func (e *LogEntry) Write(h *Value) {
	switch e.kind {
	case entryWrite:
		// last write wins, still nothing to validate
	case entryRead, entryReadWrite:
		e.kind = entryReadWrite
	case entryReadObsolete, entryReadObsoleteWrite:
		e.kind = entryReadObsoleteWrite
	default:
		panic("unknown log entry state")
	}
	e.pending = h
}

// Obsolete converts the entry into the variant a blocked retry registers
// with a var's wake list. Pending writes are dropped; a write-only entry
// has nothing to block on and reports false.
func (e LogEntry) Obsolete() (LogEntry, bool) {
	if h, ok := e.ReadValue(); ok {
		return LogEntry{kind: entryReadObsolete, original: h}, true
	}
	return LogEntry{}, false
}

// ReadValue extracts the committed handle the entry observed, ignoring any
// pending write. Write-only entries report false.
func (e LogEntry) ReadValue() (*Value, bool) {
	switch e.kind {
	case entryRead, entryReadWrite, entryReadObsolete, entryReadObsoleteWrite:
		return e.original, true
	case entryWrite:
		return nil, false
	default:
		panic("unknown log entry state")
	}
}

// checked reports whether commit must validate the entry against the var's
// current handle. Obsolete reads belong to an abandoned path and are
// exempt; write-only entries overwrite unconditionally.
func (e LogEntry) checked() bool {
	return e.kind == entryRead || e.kind == entryReadWrite
}

// pendingWrite returns the handle commit has to publish, if any.
func (e LogEntry) pendingWrite() (*Value, bool) {
	switch e.kind {
	case entryWrite, entryReadWrite, entryReadObsoleteWrite:
		return e.pending, true
	case entryRead, entryReadObsolete:
		return nil, false
	default:
		panic("unknown log entry state")
	}
}
