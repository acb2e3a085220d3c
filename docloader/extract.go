package docloader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// extractText returns the bytes as UTF-8 text, normalizing whitespace
// unless formatting is preserved.
func extractText(data []byte, config Config) (string, error) {
	text := string(data)
	if config.PreserveFormatting {
		return text, nil
	}
	return normalizeWhitespace(text), nil
}

// extractJSON validates the document and re-renders it compactly so
// downstream prompts get well-formed JSON.
func extractJSON(data []byte, _ Config) (string, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return "", err
	}
	compact, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(compact), nil
}

// extractCSV flattens rows into lines of comma-joined fields.
func extractCSV(data []byte, _ Config) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.Join(record, ", "))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// extractXML strips markup, returning the concatenated character data.
func extractXML(data []byte, config Config) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	var sb strings.Builder
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if chardata, ok := token.(xml.CharData); ok {
			sb.Write(chardata)
			sb.WriteByte(' ')
		}
	}
	text := sb.String()
	if config.PreserveFormatting {
		return text, nil
	}
	return normalizeWhitespace(text), nil
}

// extractHTML walks the parsed document and collects visible text,
// skipping script and style subtrees.
func extractHTML(data []byte, config Config) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	text := sb.String()
	if config.PreserveFormatting {
		return text, nil
	}
	return normalizeWhitespace(text), nil
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
