package devices

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"jukebot/internal/domain"
)

const (
	sonosPort = 1400

	avTransportPath      = "/MediaRenderer/AVTransport/Control"
	avTransportService   = "urn:schemas-upnp-org:service:AVTransport:1"
	contentDirPath       = "/MediaServer/ContentDirectory/Control"
	contentDirService    = "urn:schemas-upnp-org:service:ContentDirectory:1"
	deviceDescriptionURL = "/xml/device_description.xml"

	browsePageSize = 100
)

// Spotify service regions as Sonos knows them.
const (
	RegionUS = "3079"
	RegionEU = "2311"
)

// RegionForMarket picks the Sonos Spotify region for a Spotify market code.
func RegionForMarket(market string) string {
	if strings.EqualFold(market, "US") {
		return RegionUS
	}
	return RegionEU
}

// SOAPError is a UPnP fault returned by a speaker.
type SOAPError struct {
	Action string
	Status int
	Code   int // UPnP errorCode, 0 if the device sent none
}

func (e *SOAPError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sonos %s: upnp error %d", e.Action, e.Code)
	}
	return fmt.Sprintf("sonos %s: http status %d", e.Action, e.Status)
}

type SonosConfig struct {
	// Host is an IP or hostname; port 1400 is implied. A full base URL
	// such as http://10.0.0.2:1400 is also accepted.
	Host    string
	Market  string
	Timeout time.Duration
	Logger  *slog.Logger

	HTTPClient *http.Client // optional
}

// Sonos controls one speaker through its UPnP control endpoints.
type Sonos struct {
	host    string
	baseURL string
	region  string
	http    *http.Client
	logger  *slog.Logger

	mu  sync.Mutex
	udn string // RINCON_xxx, fetched lazily
}

func NewSonos(cfg SonosConfig) *Sonos {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Sonos{
		host:    cfg.Host,
		baseURL: baseURL(cfg.Host),
		region:  RegionForMarket(cfg.Market),
		http:    client,
		logger:  cfg.Logger.With("device", cfg.Host),
	}
}

func baseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if strings.Contains(host, "://") {
		return host
	}
	if strings.Contains(host, ":") {
		return "http://" + host
	}
	return fmt.Sprintf("http://%s:%d", host, sonosPort)
}

func (s *Sonos) Address() string { return s.host }

// --- Transport control ---

// Play points the speaker at its own queue and starts playback.
func (s *Sonos) Play(ctx context.Context) error {
	udn, err := s.deviceUDN(ctx)
	if err != nil {
		return err
	}
	if _, err := s.avTransport(ctx, "SetAVTransportURI",
		arg{"CurrentURI", "x-rincon-queue:" + udn + "#0"},
		arg{"CurrentURIMetaData", ""},
	); err != nil {
		return err
	}
	return s.Resume(ctx)
}

// Resume continues whatever the speaker has loaded.
func (s *Sonos) Resume(ctx context.Context) error {
	_, err := s.avTransport(ctx, "Play", arg{"Speed", "1"})
	return err
}

func (s *Sonos) Stop(ctx context.Context) error {
	_, err := s.avTransport(ctx, "Stop")
	return err
}

func (s *Sonos) Pause(ctx context.Context) error {
	_, err := s.avTransport(ctx, "Pause")
	return err
}

func (s *Sonos) Next(ctx context.Context) error {
	_, err := s.avTransport(ctx, "Next")
	return err
}

func (s *Sonos) Previous(ctx context.Context) error {
	_, err := s.avTransport(ctx, "Previous")
	return err
}

// --- Queue ---

func (s *Sonos) Enqueue(ctx context.Context, uri string) (domain.EnqueueResult, error) {
	enqueued, meta := s.toSonosURI(uri)
	out, err := s.avTransport(ctx, "AddURIToQueue",
		arg{"EnqueuedURI", enqueued},
		arg{"EnqueuedURIMetaData", meta},
		arg{"DesiredFirstTrackNumberEnqueued", "0"},
		arg{"EnqueueAsNext", "0"},
	)
	if err != nil {
		return domain.EnqueueResult{}, err
	}
	return domain.EnqueueResult{
		FirstTrackNumberEnqueued: atoi(out["FirstTrackNumberEnqueued"]),
		NumTracksAdded:           atoi(out["NumTracksAdded"]),
		NewQueueLength:           atoi(out["NewQueueLength"]),
	}, nil
}

func (s *Sonos) Flush(ctx context.Context) error {
	_, err := s.avTransport(ctx, "RemoveAllTracksFromQueue")
	return err
}

func (s *Sonos) RemoveTrack(ctx context.Context, position int) error {
	if position < 1 {
		return fmt.Errorf("sonos: invalid queue position %d", position)
	}
	_, err := s.avTransport(ctx, "RemoveTrackRangeFromQueue",
		arg{"UpdateID", "0"},
		arg{"StartingIndex", strconv.Itoa(position)},
		arg{"NumberOfTracks", "1"},
	)
	return err
}

// Queue browses Q:0 page by page until the device reports no more items.
func (s *Sonos) Queue(ctx context.Context) (domain.QueueSnapshot, error) {
	var snap domain.QueueSnapshot
	for {
		out, err := s.soap(ctx, contentDirPath, contentDirService, "Browse",
			arg{"ObjectID", "Q:0"},
			arg{"BrowseFlag", "BrowseDirectChildren"},
			arg{"Filter", "*"},
			arg{"StartingIndex", strconv.Itoa(len(snap.Items))},
			arg{"RequestedCount", strconv.Itoa(browsePageSize)},
			arg{"SortCriteria", ""},
		)
		if err != nil {
			return domain.QueueSnapshot{}, err
		}
		items, err := parseDIDL(out["Result"])
		if err != nil {
			return domain.QueueSnapshot{}, fmt.Errorf("sonos browse: %w", err)
		}
		for _, it := range items {
			snap.Items = append(snap.Items, domain.QueueItem{
				Title:  it.Title,
				Artist: it.Creator,
				Album:  it.Album,
				URI:    it.Res,
			})
		}
		snap.Total = atoi(out["TotalMatches"])
		if len(items) == 0 || len(snap.Items) >= snap.Total {
			break
		}
	}
	if snap.Total < len(snap.Items) {
		snap.Total = len(snap.Items)
	}
	return snap, nil
}

// --- Status ---

// CurrentTrack returns nil when nothing is loaded.
func (s *Sonos) CurrentTrack(ctx context.Context) (*domain.CurrentTrack, error) {
	out, err := s.avTransport(ctx, "GetPositionInfo")
	if err != nil {
		return nil, err
	}
	meta := out["TrackMetaData"]
	if meta == "" || meta == "NOT_IMPLEMENTED" {
		return nil, nil
	}
	items, err := parseDIDL(meta)
	if err != nil {
		return nil, fmt.Errorf("sonos track metadata: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &domain.CurrentTrack{
		Title:         items[0].Title,
		Artist:        items[0].Creator,
		Album:         items[0].Album,
		Duration:      parseRelTime(out["TrackDuration"]),
		Position:      parseRelTime(out["RelTime"]),
		QueuePosition: atoi(out["Track"]),
	}, nil
}

func (s *Sonos) State(ctx context.Context) (domain.PlaybackState, error) {
	out, err := s.avTransport(ctx, "GetTransportInfo")
	if err != nil {
		return domain.PlaybackState{}, err
	}
	return mapTransportState(out["CurrentTransportState"]), nil
}

func mapTransportState(raw string) domain.PlaybackState {
	switch raw {
	case "STOPPED":
		return domain.StateStopped
	case "PLAYING":
		return domain.StatePlaying
	case "PAUSED_PLAYBACK":
		return domain.StatePaused
	case "TRANSITIONING":
		return domain.StateTransitioning
	case "NO_MEDIA_PRESENT":
		return domain.StateNoMedia
	default:
		return domain.UnknownState(strings.ToLower(raw))
	}
}

// --- Device description ---

func (s *Sonos) deviceUDN(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.udn != "" {
		return s.udn, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+deviceDescriptionURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sonos device description: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sonos device description: http status %d", resp.StatusCode)
	}

	var desc struct {
		UDN string `xml:"device>UDN"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return "", fmt.Errorf("sonos device description: %w", err)
	}
	udn := strings.TrimPrefix(strings.TrimSpace(desc.UDN), "uuid:")
	if udn == "" {
		return "", errors.New("sonos device description: missing UDN")
	}
	s.udn = udn
	return udn, nil
}

// --- Spotify URIs ---

// toSonosURI rewrites spotify:track:<id> into the form Sonos expects together
// with the DIDL metadata naming the Spotify service. Other URIs pass through.
func (s *Sonos) toSonosURI(uri string) (string, string) {
	if !strings.HasPrefix(uri, "spotify:track:") {
		return uri, ""
	}
	encoded := strings.ReplaceAll(uri, ":", "%3a")
	sonosURI := "x-sonos-spotify:" + encoded + "?sid=9&flags=8224&sn=7"
	meta := `<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/"` +
		` xmlns:r="urn:schemas-rinconnetworks-com:metadata-1-0/" xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">` +
		`<item id="00032020` + encoded + `" restricted="true">` +
		`<dc:title></dc:title><upnp:class>object.item.audioItem.musicTrack</upnp:class>` +
		`<desc id="cdudn" nameSpace="urn:schemas-rinconnetworks-com:metadata-1-0/">SA_RINCON` + s.region + `_X_#Svc` + s.region + `-0-Token</desc>` +
		`</item></DIDL-Lite>`
	return sonosURI, meta
}

// --- SOAP ---

type arg struct {
	name  string
	value string
}

func (s *Sonos) avTransport(ctx context.Context, action string, args ...arg) (map[string]string, error) {
	return s.soap(ctx, avTransportPath, avTransportService, action,
		append([]arg{{"InstanceID", "0"}}, args...)...)
}

func (s *Sonos) soap(ctx context.Context, path, service, action string, args ...arg) (map[string]string, error) {
	envelope := buildEnvelope(service, action, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, service, action))

	s.logger.Debug("sonos soap request", "action", action)
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sonos %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sonos %s: read response: %w", action, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &SOAPError{Action: action, Status: resp.StatusCode, Code: faultCode(body)}
	}
	out, err := parseResponse(body, action)
	if err != nil {
		return nil, fmt.Errorf("sonos %s: %w", action, err)
	}
	return out, nil
}

func buildEnvelope(service, action string, args []arg) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	buf.WriteString(`<s:Body><u:` + action + ` xmlns:u="` + service + `">`)
	for _, a := range args {
		buf.WriteString("<" + a.name + ">")
		_ = xml.EscapeText(&buf, []byte(a.value))
		buf.WriteString("</" + a.name + ">")
	}
	buf.WriteString(`</u:` + action + `></s:Body></s:Envelope>`)
	return buf.String()
}

// parseResponse collects the text of each child of <ActionResponse>.
func parseResponse(body []byte, action string) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	out := map[string]string{}
	depth := 0 // depth below the response element, 0 = outside
	var field string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case depth == 0 && t.Name.Local == action+"Response":
				depth = 1
			case depth == 1:
				field = t.Name.Local
				text.Reset()
				depth = 2
			case depth > 1:
				depth++
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case 1:
				return out, nil
			case 2:
				out[field] = text.String()
				depth = 1
			case 0:
			default:
				depth--
			}
		}
	}
	return out, nil
}

func faultCode(body []byte) int {
	var fault struct {
		Code string `xml:"Body>Fault>detail>UPnPError>errorCode"`
	}
	if err := xml.Unmarshal(body, &fault); err != nil {
		return 0
	}
	return atoi(fault.Code)
}

// --- DIDL-Lite ---

type didlItem struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Album    string `xml:"album"`
	AlbumArt string `xml:"albumArtURI"`
	Res      string `xml:"res"`
}

func parseDIDL(doc string) ([]didlItem, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, nil
	}
	var didl struct {
		Items []didlItem `xml:"item"`
	}
	if err := xml.Unmarshal([]byte(doc), &didl); err != nil {
		return nil, err
	}
	return didl.Items, nil
}

// --- helpers ---

// parseRelTime parses H:MM:SS; anything else is zero.
func parseRelTime(v string) time.Duration {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 3 {
		return 0
	}
	h, m, sec := atoi(parts[0]), atoi(parts[1]), atoi(strings.SplitN(parts[2], ".", 2)[0])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}

func atoi(v string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}
