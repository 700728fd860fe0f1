// Package protocol implements the application layer carried over CAN.
//
// Application messages use extended frames, the 29 bit identifier packs
// the addressing triple :
//
//	bits 27..16 : message type (12 bits)
//	bits 15..12 : unused, zero
//	bits 11..4  : module type (8 bits)
//	bits 3..0   : instance (4 bits)
//
// Admin messages use standard frames, the 11 bit identifier is the admin command.
package protocol

const (
	messageTypeShift        = 16
	messageTypeMask  uint32 = 0xFFF
	moduleTypeShift         = 4
	moduleTypeMask   uint32 = 0xFF
	instanceMask     uint32 = 0xF
)

// Encode addressing triple into an extended identifier.
// Values wider than their field are truncated.
func Encode(messageType MessageType, moduleType ModuleType, instance Instance) uint32 {
	return (uint32(messageType)&messageTypeMask)<<messageTypeShift |
		(uint32(moduleType)&moduleTypeMask)<<moduleTypeShift |
		uint32(instance)&instanceMask
}

// Decode an extended identifier into its addressing triple.
// Every identifier decodes, codes outside the catalog report Known() == false.
func Decode(id uint32) (MessageType, ModuleType, Instance) {
	return MessageType((id >> messageTypeShift) & messageTypeMask),
		ModuleType((id >> moduleTypeShift) & moduleTypeMask),
		Instance(id & instanceMask)
}
