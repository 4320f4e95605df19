//go:build darwin && cgo

package selection

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <stdlib.h>

static int frontmostPID(void) {
	AXUIElementRef sys = AXUIElementCreateSystemWide();
	CFTypeRef app = NULL;
	pid_t pid = -1;
	if (AXUIElementCopyAttributeValue(sys, kAXFocusedApplicationAttribute, &app) == kAXErrorSuccess && app != NULL) {
		if (AXUIElementGetPid((AXUIElementRef)app, &pid) != kAXErrorSuccess) {
			pid = -1;
		}
		CFRelease(app);
	}
	CFRelease(sys);
	return (int)pid;
}

static char *selectedText(void) {
	AXUIElementRef sys = AXUIElementCreateSystemWide();
	CFTypeRef focused = NULL;
	char *out = NULL;
	if (AXUIElementCopyAttributeValue(sys, kAXFocusedUIElementAttribute, &focused) == kAXErrorSuccess && focused != NULL) {
		CFTypeRef value = NULL;
		if (AXUIElementCopyAttributeValue((AXUIElementRef)focused, kAXSelectedTextAttribute, &value) == kAXErrorSuccess && value != NULL) {
			if (CFGetTypeID(value) == CFStringGetTypeID()) {
				CFIndex length = CFStringGetLength((CFStringRef)value);
				CFIndex size = CFStringGetMaximumSizeForEncoding(length, kCFStringEncodingUTF8) + 1;
				out = malloc(size);
				if (out != NULL && !CFStringGetCString((CFStringRef)value, out, size, kCFStringEncodingUTF8)) {
					free(out);
					out = NULL;
				}
			}
			CFRelease(value);
		}
		CFRelease(focused);
	}
	CFRelease(sys);
	return out;
}
*/
import "C"

import "unsafe"

type axFocus struct{}

// NewPlatformFocus returns the Accessibility API reader. The process must be
// trusted for accessibility; untrusted reads simply report no selection.
func NewPlatformFocus() Focus { return axFocus{} }

func (axFocus) FrontmostPID() (int, bool) {
	pid := int(C.frontmostPID())
	return pid, pid > 0
}

func (axFocus) SelectedText() (string, bool) {
	cs := C.selectedText()
	if cs == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs), true
}
