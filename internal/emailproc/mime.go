package emailproc

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// InputFile is one piece of content this system will try to parse: either a
// real attachment, or the email's HTML body treated as a synthetic file
// named by the subject line.
type InputFile struct {
	Name      string
	Data      []byte
	MatchBody bool
}

// ParsedEmail is the result of reading one MIME message from the mail
// transport agent.
type ParsedEmail struct {
	From    string
	To      string
	Subject string
	Files   []InputFile
}

// Parse reads a full MIME message from r. From, Delivered-To, and Subject
// are all required; their absence is an EmailError, not a zero value.
func Parse(r io.Reader) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, &EmailError{Msg: "parsing MIME message", Err: err}
	}

	from := msg.Header.Get("From")
	to := msg.Header.Get("Delivered-To")
	subject := msg.Header.Get("Subject")
	if from == "" || to == "" || subject == "" {
		return nil, &EmailError{Msg: "missing From, Delivered-To, or Subject header"}
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, &EmailError{Msg: "reading message body", Err: err}
	}

	htmlBody, attachments, err := walkBody(msg.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, &EmailError{Msg: "parsing MIME body", Err: err}
	}

	var files []InputFile
	if htmlBody != nil {
		files = append(files, InputFile{Name: subject, Data: htmlBody, MatchBody: true})
	}
	files = append(files, attachments...)

	return &ParsedEmail{From: from, To: to, Subject: subject, Files: files}, nil
}

// walkBody recursively descends into multipart bodies (mixed, alternative,
// related nest inside each other in real mail), returning the first HTML
// part found as the body, and every part that declares a Content-Disposition
// with a file name as an attachment.
func walkBody(contentType string, body []byte) (htmlBody []byte, attachments []InputFile, err error) {
	mediaType, params, parseErr := mime.ParseMediaType(contentType)
	if parseErr != nil {
		if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
			return body, nil, nil
		}
		return nil, nil, nil
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		if mediaType == "text/html" {
			return body, nil, nil
		}
		return nil, nil, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, nil, &EmailError{Msg: "multipart body missing boundary parameter"}
	}

	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return nil, nil, perr
		}
		partBody, rerr := io.ReadAll(part)
		if rerr != nil {
			return nil, nil, rerr
		}

		if filename := attachmentFileName(part); filename != "" {
			attachments = append(attachments, InputFile{Name: filename, Data: partBody})
			continue
		}

		subHTML, subAttachments, werr := walkBody(part.Header.Get("Content-Type"), partBody)
		if werr != nil {
			return nil, nil, werr
		}
		if htmlBody == nil {
			htmlBody = subHTML
		}
		attachments = append(attachments, subAttachments...)
	}
	return htmlBody, attachments, nil
}

// attachmentFileName returns a part's decoded file name, or "" if it is not
// an attachment: attachments are distinguished by having a non-empty
// Content-Disposition carrying a file name, matching this system's donor
// logic ("Content-Disposition is present and filename is non-empty").
func attachmentFileName(part *multipart.Part) string {
	if part.Header.Get("Content-Disposition") == "" {
		return ""
	}
	name := part.FileName()
	if name == "" {
		return ""
	}
	return decodeRFC2047(name)
}

// decodeRFC2047 decodes an encoded-word filename (e.g.
// "=?utf-8?B?RGFpbHkgTWF0cml4IFByaWNlLnhscw==?="), returning the original
// string unchanged if it isn't one or if decoding fails.
func decodeRFC2047(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
