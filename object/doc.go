// Package object implements the reference-counted base shared by every
// long-lived runtime entity.
//
// An Object starts with one strong reference owned by its creator. Retain
// and Release move the strong count; when it drops to zero the owner's
// Dispose runs exactly once and the object becomes unreachable through weak
// handles.
//
// A Weak handle never keeps the object alive. Upgrade converts it back to a
// strong reference with a compare-and-increment on the same counter Release
// decrements, so an upgrade racing the final release either wins (and the
// object stays alive until the upgraded reference is released) or fails. An
// object whose disposal has begun can never be resurrected:
//
//	w := obj.WeakRef()
//	defer w.Release()
//	if strong := w.Upgrade(); strong != nil {
//	    defer strong.Release()
//	    // use strong
//	}
//
// Calling Retain on an object that is disposed or being disposed panics with
// errors.ErrRetainDisposed, as does releasing more references than were
// taken (errors.ErrOverRelease). Both indicate a lifecycle bug in the caller.
package object
