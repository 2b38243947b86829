package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func GenerateID() string {
	id, err := gonanoid.Generate(idAlphabet, 7)
	if err != nil {
		return ""
	}
	return id
}

// GenerateAttachmentKey produces an object key for uploaded attachments.
func GenerateAttachmentKey(userID, ext string) string {
	id, err := gonanoid.Generate(idAlphabet, 16)
	if err != nil {
		id = GenerateID()
	}
	return "attachments/" + userID + "/" + id + "." + ext
}
