package ingest

import (
	"errors"
	"fmt"
)

// Summary is what a user sees after an ingestion attempt: either a success
// message with counts, or a failure message with none.
type Summary struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Processed  int    `json:"processed_count"`
	Skipped    int    `json:"skipped_count"`
	Duplicates int    `json:"duplicate_count"`
	Failed     int    `json:"failed_count"`
}

// FileFormatMessage is shown when the file could not be read at all.
const FileFormatMessage = "處理 Excel 檔案時發生錯誤，請檢查檔案格式"

// Summarize renders a finished batch.
func Summarize(res Result) Summary {
	msg := fmt.Sprintf("成功處理 %d 筆資料，跳過 %d 筆無效資料，重複 %d 筆", res.Processed, res.Skipped, res.Duplicates)
	if res.Failed > 0 {
		msg += fmt.Sprintf("，%d 筆寫入失敗", res.Failed)
	}
	return Summary{
		Success:    true,
		Message:    msg,
		Processed:  res.Processed,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
		Failed:     res.Failed,
	}
}

// Failure renders a batch that did not run to the end. File-format errors
// carry no counts; a batch stopped by a store error reports what was done
// before it stopped.
func Failure(res Result, err error) Summary {
	if errors.Is(err, ErrFileFormat) {
		return Summary{Success: false, Message: FileFormatMessage}
	}
	s := Summarize(res)
	s.Success = false
	s.Message = fmt.Sprintf("處理中斷：%v（%s）", err, s.Message)
	return s
}
