package emit

// NullEmitter discards all events. Use it to disable event emission without
// changing wiring.
type NullEmitter struct{}

// NewNullEmitter creates an emitter that discards every event.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}
