package splitter

// Fixed triggers every size bytes, regardless of content
type Fixed struct {
	size      int
	count     int
	triggered bool
}

// NewFixed returns a fixed size splitter. It panics if size is not positive.
func NewFixed(size int) *Fixed {
	if size <= 0 {
		panic("splitter: fixed block size must be positive")
	}
	return &Fixed{size: size}
}

// BlockSize of the splitter
func (f *Fixed) BlockSize() int {
	return f.size
}

// Update the splitter with one byte
func (f *Fixed) Update(_ byte) bool {
	f.count++
	if f.count >= f.size {
		f.triggered = true
	}
	return f.triggered
}

// Write bytes to the splitter
func (f *Fixed) Write(p []byte) bool {
	f.count += len(p)
	if f.count >= f.size {
		f.triggered = true
	}
	return f.triggered
}

// Triggered since last reset
func (f *Fixed) Triggered() bool {
	return f.triggered
}

// Reset the splitter
func (f *Fixed) Reset() {
	f.count = 0
	f.triggered = false
}

// NewInstance of the splitter
func (f *Fixed) NewInstance() Splitter {
	return NewFixed(f.size)
}
