package system

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

func withLog(l logger, what string, err error) error {
	if l == nil {
		return err
	}
	if err != nil {
		l.Errorf("tty", "%s failed: %v", what, err)
	} else {
		l.Infof("tty", "%s ok", what)
	}
	return err
}

func SetGraphicsModeWithLog(l logger) error { return withLog(l, "KD_GRAPHICS", SetGraphicsMode()) }
func RestoreTextModeWithLog(l logger) error { return withLog(l, "KD_TEXT", RestoreTextMode()) }
func HideCursorWithLog(l logger) error      { return withLog(l, "hide cursor", HideCursor()) }
func ShowCursorWithLog(l logger) error      { return withLog(l, "show cursor", ShowCursor()) }
