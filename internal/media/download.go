package media

import (
	"fmt"
	"io"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"
)

// DownloadTimeout bounds a single file download.
const DownloadTimeout = 30 * time.Second

// DownloadPhoto fetches the photo bytes through the bot file API. Telegram
// hands the bot the largest size in Photo.File.
func DownloadPhoto(bot *tele.Bot, photo *tele.Photo) ([]byte, error) {
	if photo == nil || photo.FileID == "" {
		return nil, fmt.Errorf("invalid photo: missing FileID")
	}

	fileInfo, err := bot.FileByID(photo.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s",
		bot.Token, fileInfo.FilePath)

	client := &http.Client{Timeout: DownloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return data, nil
}

// DownloadAndOptimize fetches a photo and shrinks it to the inline limits.
func DownloadAndOptimize(bot *tele.Bot, photo *tele.Photo) (*ImageData, error) {
	data, err := DownloadPhoto(bot, photo)
	if err != nil {
		return nil, err
	}
	return Optimize(data)
}
