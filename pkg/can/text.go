package can

import (
	einride "go.einride.tech/can"
)

// String returns the candump notation of the frame e.g. 123#DEADBEEF or 00051234#05
func (f Frame) String() string {
	return f.toEinride().String()
}

// ParseFrame parses a frame written in candump notation.
// Identifiers with more than 3 hex digits are extended.
func ParseFrame(s string) (Frame, error) {
	var ef einride.Frame
	if err := ef.UnmarshalString(s); err != nil {
		return Frame{}, err
	}
	frame := Frame{ID: ef.ID, DLC: ef.Length, Data: ef.Data}
	if ef.IsExtended {
		frame.Flags |= FlagExtended
	}
	if ef.IsRemote {
		frame.Flags |= FlagRemote
	}
	return frame, frame.Validate()
}

func (f Frame) toEinride() einride.Frame {
	return einride.Frame{
		ID:         f.ID,
		Length:     f.DLC,
		Data:       f.Data,
		IsExtended: f.Extended(),
		IsRemote:   f.Remote(),
	}
}
