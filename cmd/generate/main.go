package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aligator/gomsg/msgtest"
)

// main writes the sample message used by the example and the tests. Can be
// executed using 'go generate' from the project root.
func main() {
	dest := filepath.Join("testdata", "sample.msg")

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		panic(err)
	}

	builder := msgtest.NewMessage().
		Subject("Quarterly report").
		Sender("Jane Doe", "jane@example.com").
		Body("Hi John,\n\nplease find the report attached.\n\nJane").
		HTML("<p>Hi John,</p><p>please find the report attached.</p><p>Jane</p>").
		Headers("Message-Id: <sample-42@example.com>\r\nContent-Type: text/plain\r\n").
		String8(0x001A, "IPM.Note").
		Time(0x0039, time.Date(2021, 3, 14, 15, 9, 2, 0, time.UTC)).
		Time(0x0E06, time.Date(2021, 3, 14, 15, 9, 5, 0, time.UTC))
	builder.AddRecipient().Name("John Smith").Email("john@example.com").Type(1).Done()
	builder.AddAttachment().Filename("report.txt").MimeTag("text/plain").Data([]byte("Q1 looks good.\n")).Done()

	if err := os.WriteFile(dest, builder.Build(), 0o644); err != nil {
		panic(err)
	}

	fmt.Println("wrote", dest)
}
