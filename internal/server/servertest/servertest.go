// Package servertest はsqlite(in-memory)とローカルディスクで本物のechoサーバを立てる。
// server のテストと受け入れテストで共有する。
package servertest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"time"

	"digistore/internal/config"
	"digistore/internal/domain/model"
	"digistore/internal/infra/db"
	"digistore/internal/infra/payment"
	"digistore/internal/infra/storage"
	"digistore/internal/logger"
	"digistore/internal/server"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	JWTSecret     = "servertest-secret"
	WebhookSecret = "servertest-webhook"
)

type Env struct {
	Server *httptest.Server
	DB     *gorm.DB
	Disk   *storage.LocalDisk
	Config config.Config

	root string
}

func New() (*Env, error) {
	root, err := os.MkdirTemp("", "digistore-files-*")
	if err != nil {
		return nil, err
	}

	cfg := config.Config{
		GoEnv:                "test",
		DBDriver:             "sqlite",
		DatabaseURL:          "file::memory:",
		JWTSecret:            JWTSecret,
		CatalogTTL:           time.Minute,
		GuestTTL:             time.Hour,
		StorageDisk:          "local",
		StorageLocalRoot:     root,
		PaymentDriver:        "upi",
		PaymentWebhookSecret: WebhookSecret,
		UPIID:                "store@upi",
		StoreName:            "Digistore",
		Currency:             "INR",
		SiteURL:              "http://store.test",
	}

	gdb, err := db.Connect(cfg, logger.Nop())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	disk, err := storage.NewLocalDisk(root)
	if err != nil {
		return nil, err
	}

	e, err := server.New(cfg, server.Deps{
		DB:       gdb,
		Disk:     disk,
		Gateway:  payment.NewUPIGateway(cfg.UPIID, cfg.StoreName),
		Verifier: payment.NewHMACVerifier(WebhookSecret),
	}, logger.Nop())
	if err != nil {
		return nil, err
	}

	return &Env{
		Server: httptest.NewServer(e),
		DB:     gdb,
		Disk:   disk,
		Config: cfg,
		root:   root,
	}, nil
}

func (e *Env) Close() {
	e.Server.Close()
	if sqlDB, err := e.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = os.RemoveAll(e.root)
}

// price は "0" なら無料。file が空ならダウンロード対象なし
func (e *Env) SeedProduct(name string, price string, file string) (model.Product, error) {
	p := model.Product{
		Name:     name,
		Slug:     model.Slugify(name),
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	if err := e.DB.Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	if file == "" {
		return p, nil
	}

	key := fmt.Sprintf("products/%d/%s", p.ID, file)
	if err := e.Disk.Put(context.Background(), key, strings.NewReader("contents of "+file)); err != nil {
		return model.Product{}, err
	}
	p.DigitalFileKey = key
	return p, e.DB.Model(&p).Update("digital_file_key", key).Error
}

func (e *Env) PromoteAdmin(email string) error {
	return e.DB.Model(&model.User{}).Where("email = ?", email).Update("role", model.RoleAdmin).Error
}

func (e *Env) OrderStatus(orderID int64) (model.OrderStatus, error) {
	var o model.Order
	if err := e.DB.First(&o, orderID).Error; err != nil {
		return "", err
	}
	return o.Status, nil
}

// cookiejar付きのクライアント。ブラウザ1つ分
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Bearer  string
}

func (e *Env) NewClient() (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: e.Server.URL,
		HTTP:    &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}, nil
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %T: %w body=%s", v, err, string(r.Body))
	}
	return nil
}

// body が nil でなければJSONで送る
func (c *Client) Do(method string, path string, body any, header map[string]string) (Response, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Response{}, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return Response{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) Cookie(name string) string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTP.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) Register(email string, password string) (Response, error) {
	return c.Do(http.MethodPost, "/auth/register", map[string]string{"email": email, "password": password}, nil)
}

// 成功したら Bearer を差し替える
func (c *Client) Login(email string, password string) (Response, error) {
	res, err := c.Do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, nil)
	if err != nil || res.Status != http.StatusOK {
		return res, err
	}

	var out struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	if err := res.Decode(&out); err != nil {
		return res, err
	}
	c.Bearer = out.Token.AccessToken
	return res, nil
}

// 決済プロバイダのふりをして署名付きで通知する
func (c *Client) SendCallback(cb model.PaymentCallback, secret string) (Response, error) {
	b, err := json.Marshal(cb)
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/payment/callback", bytes.NewReader(b))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", "sha256="+payment.Sign(secret, b))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
