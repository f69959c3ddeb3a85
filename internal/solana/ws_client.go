package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// LogsBuffer is the channel capacity of logs subscriptions.
	LogsBuffer int
	// AccountBuffer is the channel capacity of account subscriptions.
	AccountBuffer int
	// Logger receives connection diagnostics. Defaults to the standard logrus logger.
	Logger *logrus.Entry
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
		LogsBuffer:        10000,
		AccountBuffer:     256,
	}
}

// subscription is the client-side record of one server subscription.
// serverID changes on every reconnect; the handle does not.
type subscription struct {
	handle   uint64
	serverID int64
	method   string
	params   []interface{}
	logs     chan LogNotification
	accounts chan AccountNotification
	pubkey   string
}

func (s *subscription) unsubscribeMethod() string {
	if s.accounts != nil {
		return "accountUnsubscribe"
	}
	return "logsUnsubscribe"
}

func (s *subscription) close() {
	if s.logs != nil {
		close(s.logs)
	}
	if s.accounts != nil {
		close(s.accounts)
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	log      *logrus.Entry

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64
	handleSeq atomic.Uint64

	// subs maps handle to subscription; byServerID routes notifications
	subs       map[uint64]*subscription
	byServerID map[int64]*subscription
	subsMu     sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	droppedAccount atomic.Uint64

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = 30 * time.Second
	}
	if cfg.LogsBuffer <= 0 {
		cfg.LogsBuffer = 10000
	}
	if cfg.AccountBuffer <= 0 {
		cfg.AccountBuffer = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		log:         logger.WithField("component", "solana-ws"),
		subs:        make(map[uint64]*subscription),
		byServerID:  make(map[int64]*subscription),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// DroppedAccountNotifications returns the number of account notifications
// dropped because the subscriber channel was full.
func (c *WSClientImpl) DroppedAccountNotifications() uint64 {
	return c.droppedAccount.Load()
}

// SubscribeLogs subscribes to program logs matching the filter.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}
	params := []interface{}{
		mentionsFilter,
		map[string]string{"commitment": "confirmed"},
	}

	serverID, err := c.subscribe(ctx, "logsSubscribe", params)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		handle:   c.handleSeq.Add(1),
		serverID: serverID,
		method:   "logsSubscribe",
		params:   params,
		logs:     make(chan LogNotification, c.config.LogsBuffer),
	}
	if err := c.register(sub); err != nil {
		return nil, err
	}
	return sub.logs, nil
}

// SubscribeAccount subscribes to base64 account data at confirmed commitment.
func (c *WSClientImpl) SubscribeAccount(ctx context.Context, pubkey string) (uint64, <-chan AccountNotification, error) {
	params := []interface{}{
		pubkey,
		map[string]string{"encoding": "base64", "commitment": "confirmed"},
	}

	serverID, err := c.subscribe(ctx, "accountSubscribe", params)
	if err != nil {
		return 0, nil, err
	}

	sub := &subscription{
		handle:   c.handleSeq.Add(1),
		serverID: serverID,
		method:   "accountSubscribe",
		params:   params,
		accounts: make(chan AccountNotification, c.config.AccountBuffer),
		pubkey:   pubkey,
	}
	if err := c.register(sub); err != nil {
		return 0, nil, err
	}
	return sub.handle, sub.accounts, nil
}

func (c *WSClientImpl) register(sub *subscription) error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}
	c.subs[sub.handle] = sub
	c.byServerID[sub.serverID] = sub
	return nil
}

// Unsubscribe removes the subscription and closes its channel.
// The server-side cancel is sent without waiting for a reply.
func (c *WSClientImpl) Unsubscribe(handle uint64) error {
	c.subsMu.Lock()
	sub, ok := c.subs[handle]
	if ok {
		delete(c.subs, handle)
		if c.byServerID[sub.serverID] == sub {
			delete(c.byServerID, sub.serverID)
		}
		sub.close()
	}
	c.subsMu.Unlock()

	if !ok {
		return fmt.Errorf("unknown subscription %d", handle)
	}
	if c.closed.Load() {
		return nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  sub.unsubscribeMethod(),
		Params:  []interface{}{sub.serverID},
	}
	if err := c.write(req); err != nil {
		c.log.WithError(err).WithField("method", req.Method).Debug("unsubscribe write failed")
	}
	return nil
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Close all subscription channels
	c.subsMu.Lock()
	for handle, sub := range c.subs {
		sub.close()
		delete(c.subs, handle)
	}
	c.byServerID = make(map[int64]*subscription)
	c.subsMu.Unlock()

	// Close pending subscription channels
	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *WSClientImpl) write(req wsRequest) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(req)
}

// subscribe sends a subscribe request and waits for the server subscription ID.
func (c *WSClientImpl) subscribe(ctx context.Context, method string, params []interface{}) (int64, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	forget := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	if err := c.write(req); err != nil {
		forget()
		return 0, fmt.Errorf("write %s: %w", method, err)
	}

	timer := time.NewTimer(c.config.SubscribeTimeout)
	defer timer.Stop()

	select {
	case subID, ok := <-confirmCh:
		if !ok {
			return 0, fmt.Errorf("client closed")
		}
		return subID, nil
	case <-timer.C:
		forget()
		return 0, fmt.Errorf("%s timeout after %s", method, c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		forget()
		return 0, ctx.Err()
	}
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				c.log.WithError(err).WithField("delay", reconnectDelay).Warn("connection lost, reconnecting")
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		c.log.WithError(err).Warn("reconnect failed")
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-issues every active subscription after reconnect
// and remaps server IDs to the existing channels.
func (c *WSClientImpl) resubscribeAll() {
	c.subsMu.RLock()
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subsMu.RUnlock()

	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newID, err := c.subscribe(ctx, sub.method, sub.params)
		cancel()

		if err != nil {
			c.log.WithError(err).WithField("method", sub.method).Warn("resubscribe failed")
			continue
		}

		c.subsMu.Lock()
		if _, live := c.subs[sub.handle]; live {
			if c.byServerID[sub.serverID] == sub {
				delete(c.byServerID, sub.serverID)
			}
			sub.serverID = newID
			c.byServerID[newID] = sub
		}
		c.subsMu.Unlock()
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	// Try to parse as subscription response first
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID > 0 && resp.Result > 0 {
		c.handleSubscribeResponse(&resp)
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil {
		switch notif.Method {
		case "logsNotification":
			c.handleLogsNotification(&notif)
			return
		case "accountNotification":
			c.handleAccountNotification(&notif)
			return
		}
	}

	// Check for error response
	var errResp struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		// Subscription will time out
		c.log.WithFields(logrus.Fields{
			"code": errResp.Error.Code,
			"id":   errResp.ID,
		}).Warn(errResp.Error.Message)
	}
}

// handleSubscribeResponse handles subscription confirmation.
func (c *WSClientImpl) handleSubscribeResponse(resp *wsSubscribeResponse) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[resp.ID]
	if ok {
		delete(c.pendingSubs, resp.ID)
	}
	c.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- resp.Result:
		default:
		}
	}
}

// handleLogsNotification dispatches log notification to subscriber.
func (c *WSClientImpl) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	var value wsLogsValue
	if err := json.Unmarshal(notif.Params.Result.Value, &value); err != nil {
		return
	}

	logNotif := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	// RLock is held across the send so the channel cannot be closed under it
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	sub, ok := c.byServerID[notif.Params.Subscription]
	if !ok || sub.logs == nil {
		return
	}

	// Block until we can send - never drop events
	select {
	case sub.logs <- logNotif:
	case <-c.done:
	}
}

// handleAccountNotification dispatches account data to subscriber, dropping on a full channel.
func (c *WSClientImpl) handleAccountNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	var value wsAccountValue
	if err := json.Unmarshal(notif.Params.Result.Value, &value); err != nil {
		return
	}
	var data []byte
	if len(value.Data) >= 1 {
		decoded, err := base64.StdEncoding.DecodeString(value.Data[0])
		if err != nil {
			return
		}
		data = decoded
	}

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	sub, ok := c.byServerID[notif.Params.Subscription]
	if !ok || sub.accounts == nil {
		return
	}

	accNotif := AccountNotification{
		Pubkey:   sub.pubkey,
		Lamports: value.Lamports,
		Owner:    value.Owner,
		Data:     data,
	}
	if notif.Params.Result.Context != nil {
		accNotif.Slot = notif.Params.Result.Context.Slot
	}

	select {
	case sub.accounts <- accNotif:
	default:
		c.droppedAccount.Add(1)
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// Reader handles reconnect on a dead connection
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext      `json:"context"`
	Value   json.RawMessage `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

type wsAccountValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}
