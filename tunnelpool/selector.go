package tunnelpool

// selectLocked implements the weighted probabilistic pick with
// per-flow history described in SPEC_FULL.md's Selector section.
// Callers must hold p.mu.
func (p *Pool) selectLocked(flowHash uint64, repeat uint32) *Record {
	if p.active.len() == 0 {
		return nil
	}

	histIdx := int(flowHash % historySize)
	histHash := uint32(flowHash) ^ uint32(flowHash>>32)
	weightHash := histHash * (repeat + 1) // 32-bit wrap is intentional

	var total float64
	p.active.each(func(r *Record) { total += r.Weight })

	pick := (float64(weightHash) / 4294967296.0) * total

	idx := 0
	for idx < p.active.len()-1 && pick >= p.active.records[idx].Weight {
		pick -= p.active.records[idx].Weight
		idx++
	}
	candidate := p.active.records[idx]

	if repeat != 0 {
		if slot, ok := p.hist.lookup(histIdx, histHash); ok {
			if blamed := p.active.getByID(slot.id); blamed != nil {
				blamed.Weight = clampWeight(blamed.Weight * 0.75)
				p.metrics.selectorDemotions.Inc()
				if candidate == blamed {
					idx = (idx + 1) % p.active.len()
					candidate = p.active.records[idx]
				}
			}
		}
	}

	candidate.Weight = clampWeight(candidate.Weight * 1.15)
	p.hist.set(histIdx, histHash, candidate.ID)
	p.metrics.selectorPicks.Inc()
	return candidate
}

// Select is an exported wrapper around selectLocked for deterministic
// scenario tests that need to drive the selector directly without
// going through ForwardPackets's transport calls.
func (p *Pool) Select(flowHash uint64, repeat uint32) *Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectLocked(flowHash, repeat)
}
