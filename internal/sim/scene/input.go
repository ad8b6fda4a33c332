package scene

// Input is one frame's worth of operator intent. CameraYaw is the heading
// of the camera in radians; horizontal movement is resolved relative to it.
type Input struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Jump     bool

	CameraYaw float64
}

// InputSource supplies the current input once per frame.
type InputSource interface {
	Sample() Input
}

// InputFunc adapts a closure into an InputSource.
type InputFunc func() Input

func (f InputFunc) Sample() Input { return f() }
