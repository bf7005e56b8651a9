package job

// Progress is the derived aggregate for one job: counters plus the status
// they imply. It is a pure function of an item snapshot, so re-deriving
// from the same snapshot always yields the same triple.
type Progress struct {
	Processed int
	Failed    int
	Status    Status
}

// DeriveProgress recomputes the job aggregate from the current items.
// total is the job's URL count at creation; items may be a partial view
// only in the sense that some have not reached a terminal state yet.
func DeriveProgress(total int, items []Item) Progress {
	p := Progress{}
	for _, it := range items {
		if it.Status.Terminal() {
			p.Processed++
		}
		if it.Status == ItemFailed {
			p.Failed++
		}
	}
	switch {
	case p.Processed < total:
		p.Status = StatusProcessing
	case p.Failed < total:
		p.Status = StatusCompleted
	default:
		p.Status = StatusFailed
	}
	return p
}
