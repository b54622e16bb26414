package headless

// Context stands in for a window surface. SwapErr is returned from every
// swap while set. When Device is set, every swap leaves its back buffer
// undefined the way a real swap chain does.
type Context struct {
	SwapErr error
	Device  *Device
	swaps   int
}

// SwapBuffers counts the presentation and returns SwapErr
func (c *Context) SwapBuffers() error {
	c.swaps++
	if c.Device != nil {
		c.Device.DiscardBackBuffer()
	}
	return c.SwapErr
}

// Swaps returns how many times SwapBuffers was called
func (c *Context) Swaps() int {
	return c.swaps
}
