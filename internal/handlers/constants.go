package handlers

// MaxUploadSize bounds an uploaded image payload.
const MaxUploadSize = 10 << 20

// allowedImageTypes lists the multipart content types accepted for upload.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
}
