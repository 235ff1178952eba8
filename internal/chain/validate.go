package chain

// ValidateChain checks every block's hash and every link to its
// predecessor. It returns one error per finding, each a
// *TamperedBlockError or *BrokenLinkError; an empty result means the
// chain is intact. The chain is never modified.
func (c *Chain) ValidateChain() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validateLocked()
}

// validateLocked requires c.mu held for reading.
func (c *Chain) validateLocked() []error {
	var errs []error
	for i, b := range c.blocks {
		height := uint64(i)
		if !b.Validate() {
			errs = append(errs, &TamperedBlockError{Height: height, Hash: b.Hash})
		}
		if i == 0 {
			if !b.PreviousBlockHash.IsZero() {
				errs = append(errs, &BrokenLinkError{Height: 0})
			}
			continue
		}
		if b.PreviousBlockHash != c.blocks[i-1].Hash {
			errs = append(errs, &BrokenLinkError{Height: height})
		}
	}
	return errs
}
