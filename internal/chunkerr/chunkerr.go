// Package chunkerr defines the error taxonomy shared between master,
// chunkservers, and clients (spec §4.15). Each code is a u8 on the wire
// and carries a fixed human-readable string; the taxonomy also groups
// codes into policy classes used by the read planner and callers to
// decide whether to retry, escalate, or surface the error (spec §7).
package chunkerr

import "fmt"

// Code is the wire representation of an error: a single byte.
type Code uint8

const (
	OK Code = iota
	EPERM
	ENOTDIR
	ENOENT
	EACCES
	EEXIST
	EINVAL
	ENOTEMPTY
	CHUNKLOST
	OUTOFMEMORY
	INDEXTOOBIG
	LOCKED
	NOCHUNKSERVERS
	NOCHUNK
	CHUNKBUSY
	WRONGVERSION
	CHUNKEXIST
	NOSPACE
	IO
	BNUMTOOBIG
	WRONGSIZE
	WRONGOFFSET
	CANTCONNECT
	WRONGCHUNKID
	DISCONNECTED
	CRC
	DELAYED
	MISMATCH
	EROFS
	QUOTA
	BADSESSIONID
	BADPASSWORD
)

var strings = map[Code]string{
	OK:             "OK",
	EPERM:          "Operation not permitted",
	ENOTDIR:        "Not a directory",
	ENOENT:         "No such file or directory",
	EACCES:         "Permission denied",
	EEXIST:         "File exists",
	EINVAL:         "Invalid argument",
	ENOTEMPTY:      "Directory not empty",
	CHUNKLOST:      "Chunk lost",
	OUTOFMEMORY:    "Out of memory",
	INDEXTOOBIG:    "Index too big",
	LOCKED:         "Chunk locked",
	NOCHUNKSERVERS: "No chunk servers",
	NOCHUNK:        "No such chunk",
	CHUNKBUSY:      "Chunk is busy",
	WRONGVERSION:   "Wrong chunk version",
	CHUNKEXIST:     "Chunk already exists",
	NOSPACE:        "No space left",
	IO:             "IO error",
	BNUMTOOBIG:     "Block number too big",
	WRONGSIZE:      "Wrong size",
	WRONGOFFSET:    "Wrong offset",
	CANTCONNECT:    "Can't connect",
	WRONGCHUNKID:   "Wrong chunk id",
	DISCONNECTED:   "Disconnected",
	CRC:            "CRC error",
	DELAYED:        "Operation delayed",
	MISMATCH:       "Data mismatch",
	EROFS:          "Read-only filesystem",
	QUOTA:          "Quota exceeded",
	BADSESSIONID:   "Bad session id",
	BADPASSWORD:    "Bad password",
}

// String returns the fixed human-readable string for the code, or
// "unknown error <n>" for an unrecognized code.
func (c Code) String() string {
	if s, ok := strings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown error %d", uint8(c))
}

// Error implements the error interface so a Code can be returned and
// compared directly as a Go error.
func (c Code) Error() string {
	return c.String()
}

// Class is the retry/escalation policy bucket a Code belongs to (spec §7).
type Class int

const (
	// ClassOK is not an error.
	ClassOK Class = iota
	// ClassLocalRecoverable means the planner should promote to the next
	// wave using a different part, or retry with backoff.
	ClassLocalRecoverable
	// ClassEscalate means the caller should abort the current chunk
	// operation and re-query the master, or back off and retry.
	ClassEscalate
	// ClassFatal means the error must surface to the caller without retry.
	ClassFatal
)

var classes = map[Code]Class{
	OK:             ClassOK,
	CRC:            ClassLocalRecoverable,
	DISCONNECTED:   ClassLocalRecoverable,
	CANTCONNECT:    ClassLocalRecoverable,
	DELAYED:        ClassLocalRecoverable,
	WRONGVERSION:   ClassEscalate,
	WRONGCHUNKID:   ClassEscalate,
	NOCHUNK:        ClassEscalate,
	CHUNKBUSY:      ClassEscalate,
	LOCKED:         ClassEscalate,
	EINVAL:         ClassFatal,
	EACCES:         ClassFatal,
	EROFS:          ClassFatal,
	MISMATCH:       ClassFatal,
}

// ClassOf returns the retry/escalation policy class for a code. Codes with
// no explicit entry (e.g. ENOENT, NOSPACE) default to ClassFatal: surface
// without retry.
func ClassOf(c Code) Class {
	if cl, ok := classes[c]; ok {
		return cl
	}
	return ClassFatal
}

// IsLocalRecoverable reports whether the read planner should treat this
// error as a signal to fail over to the next wave.
func IsLocalRecoverable(err error) bool {
	c, ok := err.(Code)
	return ok && ClassOf(c) == ClassLocalRecoverable
}
