package gateway

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// LoadFirefoxCookies 从本机 Firefox 配置目录提取会话 cookie。
// cookies.sqlite 可能被运行中的浏览器锁定，先复制到临时文件再读。
func LoadFirefoxCookies(profileDir string) (psid, psidts string, err error) {
	dbPath, err := findCookieDB(profileDir)
	if err != nil {
		return "", "", err
	}

	tmpPath, err := copyToTemp(dbPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to copy cookie db: %w", err)
	}
	defer os.Remove(tmpPath)

	db, err := sql.Open("sqlite", tmpPath+"?mode=ro")
	if err != nil {
		return "", "", fmt.Errorf("failed to open cookie db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT name, value FROM moz_cookies
		 WHERE host LIKE '%google.com%' AND name LIKE '%Secure-1PSID%'`)
	if err != nil {
		return "", "", fmt.Errorf("cookie query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return "", "", err
		}
		switch name {
		case "__Secure-1PSID":
			psid = value
		case "__Secure-1PSIDTS":
			psidts = value
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", err
	}
	if psid == "" {
		return "", "", fmt.Errorf("no __Secure-1PSID cookie in %s", dbPath)
	}
	return psid, psidts, nil
}

// findCookieDB 定位 cookies.sqlite；未显式指定时扫描默认配置目录
func findCookieDB(profileDir string) (string, error) {
	if profileDir != "" {
		path := filepath.Join(profileDir, "cookies.sqlite")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("no cookie db in profile %s: %w", profileDir, err)
		}
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	matches, _ := filepath.Glob(filepath.Join(home, ".mozilla", "firefox", "*.default*", "cookies.sqlite"))
	if len(matches) == 0 {
		return "", fmt.Errorf("no firefox profile with cookies.sqlite found")
	}
	return matches[0], nil
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "cookies-*.sqlite")
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
