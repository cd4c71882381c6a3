package service

import (
	"context"
	"io"
)

// Notifier delivers account lifecycle mail. Both methods are fire-and-forget:
// they never block on delivery and never report failure to the caller.
type Notifier interface {
	Welcome(ctx context.Context, name, address string)
	Farewell(ctx context.Context, name, address string)
}

// AvatarProcessor turns an uploaded image into the stored avatar bytes.
type AvatarProcessor interface {
	Process(filename string, r io.Reader) ([]byte, error)
}
