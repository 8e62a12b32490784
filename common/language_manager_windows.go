//go:build windows

// common/language_manager_windows.go
// Language detection for Windows.

package common

import (
	"strings"
	"syscall"
	"unsafe"
)

// getSystemLanguage asks kernel32 for the user default locale name
func getSystemLanguage() string {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	getUserDefaultLocaleName := kernel32.NewProc("GetUserDefaultLocaleName")

	localeName := make([]uint16, 85) // LOCALE_NAME_MAX_LENGTH
	getUserDefaultLocaleName.Call(uintptr(unsafe.Pointer(&localeName[0])), uintptr(len(localeName)))
	return strings.ToLower(syscall.UTF16ToString(localeName))
}
