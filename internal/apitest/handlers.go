package apitest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/galerija/internal/model"
)

// router registers all endpoints behind a request-counting wrapper.
func (s *Server) router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/token/{$}", s.login)
	mux.HandleFunc("POST /api/token/refresh/{$}", s.refreshToken)

	mux.HandleFunc("POST /api/users/{$}", s.register)
	mux.HandleFunc("GET /api/users/{$}", s.listUsers)
	mux.HandleFunc("GET /api/users/me/{$}", s.me)

	mux.HandleFunc("GET /api/art-pictures/{$}", s.listArt)
	mux.HandleFunc("GET /api/art-pictures/{id}/{$}", s.getArt)
	mux.HandleFunc("POST /api/art-pictures/{$}", s.createArt)
	mux.HandleFunc("PATCH /api/art-pictures/{id}/{$}", s.updateArt)
	mux.HandleFunc("DELETE /api/art-pictures/{id}/{$}", s.deleteArt)

	mux.HandleFunc("GET /api/carts/my_cart/{$}", s.myCart)
	mux.HandleFunc("POST /api/carts/add_item/{$}", s.addCartItem)
	mux.HandleFunc("POST /api/carts/update_item_quantity/{$}", s.updateCartQuantity)
	mux.HandleFunc("POST /api/carts/remove_item/{$}", s.removeCartItem)
	mux.HandleFunc("POST /api/carts/clear/{$}", s.clearCart)

	mux.HandleFunc("GET /api/orders/{$}", s.listOrders)
	mux.HandleFunc("GET /api/orders/{id}/{$}", s.getOrder)
	mux.HandleFunc("POST /api/orders/checkout/{$}", s.checkout)
	mux.HandleFunc("POST /api/orders/{id}/process_payment/{$}", s.processPayment)
	mux.HandleFunc("PATCH /api/orders/{id}/{$}", s.updateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}/{$}", s.deleteOrder)
	mux.HandleFunc("POST /api/orders/restore_order/{$}", s.restoreOrder)

	mux.HandleFunc("GET /api/order-user-view/{$}", s.orderUserView)
	mux.HandleFunc("GET /api/order-user-view/grouped_by_user/{$}", s.groupedByUser)

	mux.HandleFunc("GET /api/messages/{$}", s.listMessages)
	mux.HandleFunc("POST /api/messages/{id}/mark_as_read/{$}", s.markMessageRead)
	mux.HandleFunc("POST /api/messages/send_public_message/{$}", s.sendPublicMessage)
	mux.HandleFunc("POST /api/messages/send_user_message/{$}", s.sendUserMessage)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

// bearerUser resolves the Authorization header to a seeded user. Refresh
// tokens are rejected as access credentials.
func (s *Server) bearerUser(r *http.Request) (model.User, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return model.User{}, false
	}
	c, err := parseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil || c.Refresh {
		return model.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == c.UserID {
			return user, true
		}
	}
	return model.User{}, false
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func orderNumber(n int64) string {
	return fmt.Sprintf("ORD-%06d", n)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	failLogin := s.FailLogin
	hash, known := s.passwords[req.Username]
	var user model.User
	for _, u := range s.users {
		if u.Username == req.Username {
			user = u
		}
	}
	s.mu.Unlock()

	if failLogin || !known {
		jsonError(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		jsonError(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"access":  issueToken(user, s.AccessTTL, false),
		"refresh": issueToken(user, 7*24*time.Hour, true),
	})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	failRefresh := s.FailRefresh
	s.mu.Unlock()
	if failRefresh {
		jsonError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	c, err := parseToken(req.Refresh)
	if err != nil || !c.Refresh {
		jsonError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	user := model.User{ID: c.UserID, Username: c.Username, IsStaff: c.IsStaff}
	jsonResponse(w, http.StatusOK, map[string]string{
		"access": issueToken(user, s.AccessTTL, false),
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		fieldErrors(w, map[string][]string{"username": {"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username {
			fieldErrors(w, map[string][]string{
				"username": {"A user with that username already exists."},
			})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := model.User{
		ID:        s.id(),
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	s.users = append(s.users, user)
	s.passwords[req.Username] = hash
	jsonResponse(w, http.StatusCreated, user)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, http.StatusOK, s.users)
}

func (s *Server) listArt(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, http.StatusOK, s.pictures)
}

func (s *Server) getArt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pic := range s.pictures {
		if pic.ID == id {
			jsonResponse(w, http.StatusOK, pic)
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

// readArtForm extracts the multipart fields shared by create and update.
func readArtForm(r *http.Request) (map[string]string, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", err
	}
	fields := make(map[string]string)
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	image := ""
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		image = "/media/art_pictures/" + files[0].Filename
	}
	return fields, image, nil
}

func (s *Server) createArt(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	fields, image, err := readArtForm(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	if fields["title"] == "" {
		fieldErrors(w, map[string][]string{"title": {"This field is required."}})
		return
	}
	price, _ := strconv.ParseFloat(fields["price"], 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	pic := model.ArtPicture{
		ID:          s.id(),
		Title:       fields["title"],
		Description: fields["description"],
		Price:       model.Money(price),
		Image:       image,
		IsAvailable: fields["is_available"] != "false",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.pictures = append(s.pictures, pic)
	jsonResponse(w, http.StatusCreated, pic)
}

func (s *Server) updateArt(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	fields, image, err := readArtForm(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pictures {
		if s.pictures[i].ID != id {
			continue
		}
		if v, set := fields["title"]; set {
			s.pictures[i].Title = v
		}
		if v, set := fields["description"]; set {
			s.pictures[i].Description = v
		}
		if v, set := fields["price"]; set {
			price, _ := strconv.ParseFloat(v, 64)
			s.pictures[i].Price = model.Money(price)
		}
		if v, set := fields["is_available"]; set {
			s.pictures[i].IsAvailable = v != "false"
		}
		if image != "" {
			s.pictures[i].Image = image
		}
		s.pictures[i].UpdatedAt = time.Now()
		jsonResponse(w, http.StatusOK, s.pictures[i])
		return
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) deleteArt(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pictures {
		if s.pictures[i].ID == id {
			s.pictures = append(s.pictures[:i], s.pictures[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

// cartForLocked returns the user's cart, creating it on first access. The
// caller holds s.mu.
func (s *Server) cartForLocked(userID int64) *model.Cart {
	if cart, ok := s.carts[userID]; ok {
		return cart
	}
	now := time.Now()
	cart := &model.Cart{ID: s.id(), User: userID, CreatedAt: now, UpdatedAt: now}
	s.carts[userID] = cart
	return cart
}

// recomputeLocked refreshes line subtotals and the cart total.
func recomputeLocked(cart *model.Cart) {
	var total model.Money
	for i := range cart.Items {
		cart.Items[i].Subtotal = cart.Items[i].ArtPicture.Price * model.Money(cart.Items[i].Quantity)
		total += cart.Items[i].Subtotal
	}
	cart.TotalPrice = total
	cart.UpdatedAt = time.Now()
}

func (s *Server) myCart(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, http.StatusOK, s.cartForLocked(user.ID))
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	var req struct {
		ArtPictureID int64 `json:"art_picture_id"`
		Quantity     int   `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var pic *model.ArtPicture
	for i := range s.pictures {
		if s.pictures[i].ID == req.ArtPictureID {
			pic = &s.pictures[i]
			break
		}
	}
	if pic == nil {
		jsonError(w, http.StatusNotFound, "Art picture not found")
		return
	}
	if !pic.IsAvailable {
		jsonError(w, http.StatusBadRequest, "This art picture is not available")
		return
	}

	cart := s.cartForLocked(user.ID)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ArtPicture.ID == pic.ID {
			cart.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, model.CartItem{
			ID:         s.id(),
			ArtPicture: *pic,
			Quantity:   req.Quantity,
			AddedAt:    time.Now(),
		})
	}
	recomputeLocked(cart)
	jsonResponse(w, http.StatusOK, cart)
}

func (s *Server) updateCartQuantity(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	var req struct {
		ItemID   int64 `json:"item_id"`
		Quantity int   `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		jsonError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartForLocked(user.ID)
	for i := range cart.Items {
		if cart.Items[i].ID == req.ItemID {
			cart.Items[i].Quantity = req.Quantity
			recomputeLocked(cart)
			jsonResponse(w, http.StatusOK, cart)
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Cart item not found")
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	var req struct {
		ItemID int64 `json:"item_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartForLocked(user.ID)
	for i := range cart.Items {
		if cart.Items[i].ID == req.ItemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			recomputeLocked(cart)
			jsonResponse(w, http.StatusOK, map[string]int64{"id": req.ItemID})
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Cart item not found")
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartForLocked(user.ID)
	cart.Items = nil
	recomputeLocked(cart)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.IsStaff {
		jsonResponse(w, http.StatusOK, s.orders)
		return
	}
	var mine []model.Order
	for _, order := range s.orders {
		if order.User == user.ID {
			mine = append(mine, order)
		}
	}
	jsonResponse(w, http.StatusOK, mine)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.ID == id && (user.IsStaff || order.User == user.ID) {
			jsonResponse(w, http.StatusOK, order)
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	var req struct {
		ShippingAddress string        `json:"shipping_address"`
		BillingAddress  string        `json:"billing_address"`
		ShippingData    model.Address `json:"shipping_address_data"`
		BillingData     model.Address `json:"billing_address_data"`
		PaymentMethod   string        `json:"payment_method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartForLocked(user.ID)
	if len(cart.Items) == 0 {
		jsonError(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	shipping := req.ShippingData
	billing := req.BillingData
	order := model.Order{
		ID:              s.id(),
		User:            user.ID,
		OrderNumber:     orderNumber(s.nextID),
		Status:          model.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingData:    &shipping,
		BillingData:     &billing,
		TotalPrice:      cart.TotalPrice,
		CreatedAt:       time.Now(),
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, model.OrderItem{
			ID:         s.id(),
			ArtPicture: item.ArtPicture,
			Price:      item.ArtPicture.Price,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal,
		})
	}
	s.orders = append(s.orders, order)
	cart.Items = nil
	recomputeLocked(cart)
	jsonResponse(w, http.StatusCreated, order)
}

func (s *Server) processPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		jsonError(w, http.StatusBadRequest, "Payment token is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID != id || (!user.IsStaff && s.orders[i].User != user.ID) {
			continue
		}
		if s.orders[i].Status == model.OrderStatusPaid {
			jsonError(w, http.StatusBadRequest, "Order is already paid")
			return
		}
		now := time.Now()
		s.orders[i].Status = model.OrderStatusPaid
		s.orders[i].PaidAt = &now
		jsonResponse(w, http.StatusOK, s.orders[i])
		return
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			if req.Status != "" {
				s.orders[i].Status = req.Status
			}
			jsonResponse(w, http.StatusOK, s.orders[i])
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeleteOrders[id] {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) restoreOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	var req struct {
		User            int64         `json:"user"`
		ShippingAddress string        `json:"shipping_address"`
		BillingAddress  string        `json:"billing_address"`
		ShippingData    model.Address `json:"shipping_address_data"`
		BillingData     model.Address `json:"billing_address_data"`
		PaymentMethod   string        `json:"payment_method"`
		TotalPrice      model.Money   `json:"total_price"`
		Status          string        `json:"status"`
		Items           []struct {
			ArtPictureID int64       `json:"art_picture_id"`
			Quantity     int         `json:"quantity"`
			Price        model.Money `json:"price"`
		} `json:"items"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRestore {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	shipping := req.ShippingData
	billing := req.BillingData
	order := model.Order{
		ID:              s.id(),
		User:            req.User,
		OrderNumber:     orderNumber(s.nextID),
		Status:          req.Status,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingData:    &shipping,
		BillingData:     &billing,
		TotalPrice:      req.TotalPrice,
		CreatedAt:       time.Now(),
	}
	for _, item := range req.Items {
		line := model.OrderItem{
			ID:       s.id(),
			Price:    item.Price,
			Quantity: item.Quantity,
			Subtotal: item.Price * model.Money(item.Quantity),
		}
		for _, pic := range s.pictures {
			if pic.ID == item.ArtPictureID {
				line.ArtPicture = pic
				break
			}
		}
		if line.ArtPicture.ID == 0 {
			line.ArtPicture = model.ArtPicture{ID: item.ArtPictureID}
		}
		order.Items = append(order.Items, line)
	}
	s.orders = append(s.orders, order)
	jsonResponse(w, http.StatusCreated, order)
}

func (s *Server) userByIDLocked(id int64) model.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return model.User{ID: id, Username: fmt.Sprintf("user-%d", id)}
}

func (s *Server) orderUserView(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jsonResponse(w, http.StatusOK, s.rowsLocked())
}

func (s *Server) rowsLocked() []model.OrderUserRow {
	rows := make([]model.OrderUserRow, 0, len(s.orders))
	for _, order := range s.orders {
		owner := s.userByIDLocked(order.User)
		rows = append(rows, model.OrderUserRow{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			TotalPrice:  order.TotalPrice,
			CreatedAt:   order.CreatedAt,
			PaidAt:      order.PaidAt,
			UserID:      owner.ID,
			Username:    owner.Username,
			Email:       owner.Email,
			DisplayName: owner.DisplayName(),
		})
	}
	return rows
}

func (s *Server) groupedByUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := make(map[string]*model.UserOrderGroup)
	for _, row := range s.rowsLocked() {
		group, ok := byUser[row.Username]
		if !ok {
			group = &model.UserOrderGroup{
				Username: row.Username,
				UserInfo: model.UserInfo{
					UserID:      row.UserID,
					Email:       row.Email,
					DisplayName: row.DisplayName,
				},
			}
			byUser[row.Username] = group
		}
		group.OrderCount++
		group.TotalSpent += row.TotalPrice
		group.Orders = append(group.Orders, row)
	}

	groups := make([]model.UserOrderGroup, 0, len(byUser))
	for _, group := range byUser {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Username < groups[j].Username })
	jsonResponse(w, http.StatusOK, groups)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.IsStaff {
		jsonResponse(w, http.StatusOK, s.messages)
		return
	}
	var visible []model.Message
	for _, msg := range s.messages {
		switch {
		case msg.MessageType == model.MessageAdminToAll:
			visible = append(visible, msg)
		case msg.Sender == user.ID:
			visible = append(visible, msg)
		case msg.Recipient != nil && *msg.Recipient == user.ID:
			visible = append(visible, msg)
		}
	}
	jsonResponse(w, http.StatusOK, visible)
}

func (s *Server) markMessageRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.bearerUser(r); !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Not found.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].IsRead = true
			jsonResponse(w, http.StatusOK, s.messages[i])
			return
		}
	}
	jsonError(w, http.StatusNotFound, "Not found.")
}

func (s *Server) sendPublicMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if !user.IsStaff {
		jsonError(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	var req struct {
		Subject string `json:"subject"`
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.Message{
		ID:             s.id(),
		Sender:         user.ID,
		SenderUsername: user.Username,
		Subject:        req.Subject,
		Content:        req.Content,
		MessageType:    model.MessageAdminToAll,
		CreatedAt:      time.Now(),
	}
	s.messages = append(s.messages, msg)
	jsonResponse(w, http.StatusCreated, msg)
}

func (s *Server) sendUserMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.bearerUser(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	var req struct {
		Recipient *int64 `json:"recipient"`
		Subject   string `json:"subject"`
		Content   string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msgType := model.MessageUserToAdmin
	if user.IsStaff {
		if req.Recipient == nil {
			jsonError(w, http.StatusBadRequest, "Recipient is required")
			return
		}
		msgType = model.MessageAdminToUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.Message{
		ID:             s.id(),
		Sender:         user.ID,
		SenderUsername: user.Username,
		Recipient:      req.Recipient,
		Subject:        req.Subject,
		Content:        req.Content,
		MessageType:    msgType,
		CreatedAt:      time.Now(),
	}
	if req.Recipient != nil {
		msg.RecipientUsername = s.userByIDLocked(*req.Recipient).Username
	}
	s.messages = append(s.messages, msg)
	jsonResponse(w, http.StatusCreated, msg)
}
