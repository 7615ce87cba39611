package input

// Abstract button masks with a fixed native meaning.
const (
	MaskScrollDown int32 = 0x10
	MaskScrollUp   int32 = 0x8
	MaskRight      int32 = 0x4
)

// Native core pointer buttons.
const (
	buttonRight      byte = 3
	buttonScrollUp   byte = 4
	buttonScrollDown byte = 5
)

type buttonAction struct {
	button byte
	press  bool
}

// translateButton maps an abstract mask to the native events it produces.
// Scroll masks always click (press then release) whatever pressed says.
// Masks outside the table are used as the native button number, truncated
// to the protocol's one-byte detail field.
func translateButton(mask int32, pressed bool) []buttonAction {
	switch mask {
	case 0:
		return nil
	case MaskScrollDown:
		return click(buttonScrollDown)
	case MaskScrollUp:
		return click(buttonScrollUp)
	case MaskRight:
		return []buttonAction{{button: buttonRight, press: pressed}}
	default:
		return []buttonAction{{button: byte(mask), press: pressed}}
	}
}

func click(button byte) []buttonAction {
	return []buttonAction{
		{button: button, press: true},
		{button: button, press: false},
	}
}
