package granary

type factory struct{}

var Factory factory

func (f factory) NewWorld() *World {
	return newWorld()
}

func (f factory) NewCursor(filter Filter, world *World) *Cursor {
	return newCursor(filter, world)
}

func (f factory) NewCommandBuffer(world *World) *CommandBuffer {
	return newCommandBuffer(world)
}
