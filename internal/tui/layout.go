package tui

// pageLayout tracks how much room each screen region gets for the
// current terminal size. Every view reads from here instead of doing
// its own size math.
type pageLayout struct {
	windowWidth    int
	windowHeight   int
	listWidth      int
	listHeight     int
	bookListHeight int
	viewportWidth  int
	viewportHeight int
	modalWidth     int
	pickerRows     int
}

func newPageLayout() pageLayout {
	layout := pageLayout{}
	layout.Update(80, 24)
	return layout
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height

	l.listWidth = width - 2
	if l.listWidth < 30 {
		l.listWidth = 30
	}

	// Chrome around the search list: two header lines, the facet bar,
	// a status line, the help footer, and the blank lines between
	// sections.
	const searchChrome = 9
	l.listHeight = height - searchChrome
	if l.listHeight < 5 {
		l.listHeight = 5
	}

	// The mistake book also carries the accuracy table above its list.
	const bookChrome = searchChrome + maxAccuracyRows
	l.bookListHeight = height - bookChrome
	if l.bookListHeight < 4 {
		l.bookListHeight = 4
	}

	l.viewportWidth = width - viewportHorizontalPadding
	if l.viewportWidth < minViewportWidth {
		l.viewportWidth = minViewportWidth
	}
	const detailChrome = 7
	l.viewportHeight = height - detailChrome
	if l.viewportHeight < 5 {
		l.viewportHeight = 5
	}

	l.modalWidth = width - 8
	if l.modalWidth > 72 {
		l.modalWidth = 72
	}
	if l.modalWidth < 40 {
		l.modalWidth = 40
	}

	l.pickerRows = height - 12
	if l.pickerRows < 4 {
		l.pickerRows = 4
	}
}
