package image

// evfSignature is the magic byte sequence for EnCase/Expert Witness Format
// (E01) files. Detected so unsupported E01 input fails fast with a clear
// error instead of being misread as a raw image.
var evfSignature = [8]byte{'E', 'V', 'F', 0x09, 0x0D, 0x0A, 0xFF, 0x00}
