package msgcat

import (
    "embed"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "text/template"

    yaml "gopkg.in/yaml.v3"
)

//go:embed messages.ko.yaml
var defaultFiles embed.FS

const defaultFile = "messages.ko.yaml"

// Catalog 는 점(.)으로 이은 키 → text/template 문구 표.
// 내장 기본값 위에 override 디렉터리의 yaml 을 덮어쓴다.
type Catalog struct {
    mu    sync.RWMutex
    data  map[string]string
    cache map[string]*template.Template
}

// New 는 내장 문구를 읽고 overrideDir 가 있으면 그 안의 *.yaml/*.yml 을 적용한다.
func New(overrideDir string) (*Catalog, error) {
    c := &Catalog{data: make(map[string]string), cache: make(map[string]*template.Template)}
    raw, err := fs.ReadFile(defaultFiles, defaultFile)
    if err != nil { return nil, fmt.Errorf("read embedded messages: %w", err) }
    flat, err := parseYAMLToFlat(raw)
    if err != nil { return nil, fmt.Errorf("parse embedded messages: %w", err) }
    c.merge(flat)

    if strings.TrimSpace(overrideDir) != "" {
        if err := c.applyDir(overrideDir); err != nil { return nil, err }
    }
    return c, nil
}

// MustDefault 는 내장 문구만 쓰는 카탈로그. 내장 파일이 깨졌으면 panic.
func MustDefault() *Catalog {
    c, err := New("")
    if err != nil { panic(err) }
    return c
}

func (c *Catalog) applyDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil { return fmt.Errorf("read template dir: %w", err) }
    files := make([]string, 0, len(entries))
    for _, e := range entries {
        if e.IsDir() { continue }
        switch strings.ToLower(filepath.Ext(e.Name())) {
        case ".yaml", ".yml":
            files = append(files, e.Name())
        }
    }
    sort.Strings(files)

    // override 파일끼리 같은 키를 두 번 정의하면 거부
    seen := make(map[string]string)
    for _, name := range files {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return fmt.Errorf("read %s: %w", name, err) }
        flat, err := parseYAMLToFlat(b)
        if err != nil { return fmt.Errorf("parse %s: %w", name, err) }
        for k := range flat {
            if prev, ok := seen[k]; ok {
                return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
            }
            seen[k] = name
        }
        c.merge(flat)
    }
    return nil
}

func (c *Catalog) merge(flat map[string]string) {
    c.mu.Lock()
    defer c.mu.Unlock()
    for k, v := range flat {
        c.data[k] = v
        delete(c.cache, k)
    }
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
    var root map[string]any
    if err := yaml.Unmarshal(b, &root); err != nil { return nil, err }
    flat := make(map[string]string)
    if err := flatten(root, "", flat); err != nil { return nil, err }
    return flat, nil
}

func flatten(src any, prefix string, out map[string]string) error {
    switch v := src.(type) {
    case map[string]any:
        for k, vv := range v {
            key := k
            if prefix != "" { key = prefix + "." + k }
            if err := flatten(vv, key, out); err != nil { return err }
        }
        return nil
    case string:
        if prefix == "" { return errors.New("string value without key prefix") }
        out[prefix] = v
        return nil
    case nil:
        return nil
    default:
        // 문자열 잎만 허용
        return fmt.Errorf("unsupported value at %s: %T", prefix, v)
    }
}

// Has 는 키가 정의돼 있는지 알려준다.
func (c *Catalog) Has(key string) bool {
    if c == nil { return false }
    c.mu.RLock()
    defer c.mu.RUnlock()
    _, ok := c.data[strings.TrimSpace(key)]
    return ok
}

// Render 는 key 의 문구를 data 로 실행한다. 없는 키나 빠진 필드는 에러.
func (c *Catalog) Render(key string, data any) (string, error) {
    if c == nil { return "", fmt.Errorf("template not found: %s", key) }
    key = strings.TrimSpace(key)
    t, err := c.template(key)
    if err != nil { return "", err }
    var b strings.Builder
    if err := t.Execute(&b, data); err != nil { return "", err }
    return b.String(), nil
}

// Text 는 Render 가 실패하면 fallback 을 돌려준다.
func (c *Catalog) Text(key string, data any, fallback string) string {
    out, err := c.Render(key, data)
    if err != nil { return fallback }
    return out
}

func (c *Catalog) template(key string) (*template.Template, error) {
    c.mu.RLock()
    t, cached := c.cache[key]
    src, ok := c.data[key]
    c.mu.RUnlock()
    if cached { return t, nil }
    if !ok || strings.TrimSpace(src) == "" { return nil, fmt.Errorf("template not found: %s", key) }

    t, err := template.New(key).Option("missingkey=error").Parse(src)
    if err != nil { return nil, fmt.Errorf("parse template %s: %w", key, err) }
    c.mu.Lock()
    c.cache[key] = t
    c.mu.Unlock()
    return t, nil
}
