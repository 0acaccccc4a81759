package grpcsvc

import "google.golang.org/protobuf/reflect/protoreflect"

// Имена полей совпадают с orderServiceFileProto.

func (*Customer) protoName() protoreflect.Name { return "Customer" }

func (c *Customer) writeProto(w protoWriter) {
	w.setString("id", c.ID)
	w.setString("name", c.Name)
	w.setString("email", c.Email)
	w.setTime("created_at", c.CreatedAt)
}

func (c *Customer) readProto(r protoReader) {
	c.ID = r.getString("id")
	c.Name = r.getString("name")
	c.Email = r.getString("email")
	c.CreatedAt = r.getTime("created_at")
}

func (*Product) protoName() protoreflect.Name { return "Product" }

func (p *Product) writeProto(w protoWriter) {
	w.setString("id", p.ID)
	w.setString("name", p.Name)
	w.setInt64("price_minor", p.PriceMinor)
	w.setInt32("quantity", p.Quantity)
	w.setTime("created_at", p.CreatedAt)
	w.setTime("updated_at", p.UpdatedAt)
}

func (p *Product) readProto(r protoReader) {
	p.ID = r.getString("id")
	p.Name = r.getString("name")
	p.PriceMinor = r.getInt64("price_minor")
	p.Quantity = r.getInt32("quantity")
	p.CreatedAt = r.getTime("created_at")
	p.UpdatedAt = r.getTime("updated_at")
}

func (*OrderItem) protoName() protoreflect.Name { return "OrderItem" }

func (i *OrderItem) writeProto(w protoWriter) {
	w.setString("id", i.ID)
	w.setString("product_id", i.ProductID)
	w.setInt64("price_minor", i.PriceMinor)
	w.setInt32("quantity", i.Quantity)
}

func (i *OrderItem) readProto(r protoReader) {
	i.ID = r.getString("id")
	i.ProductID = r.getString("product_id")
	i.PriceMinor = r.getInt64("price_minor")
	i.Quantity = r.getInt32("quantity")
}

func (*Order) protoName() protoreflect.Name { return "Order" }

func (o *Order) writeProto(w protoWriter) {
	w.setString("id", o.ID)
	w.setString("customer_id", o.CustomerID)
	if o.Customer != nil {
		w.setMessage("customer", o.Customer)
	}
	w.setInt64("amount_minor", o.AmountMinor)
	for i := range o.Items {
		w.appendMessage("items", &o.Items[i])
	}
	w.setTime("created_at", o.CreatedAt)
}

func (o *Order) readProto(r protoReader) {
	o.ID = r.getString("id")
	o.CustomerID = r.getString("customer_id")
	if customer, ok := r.message("customer"); ok {
		o.Customer = &Customer{}
		o.Customer.readProto(customer)
	}
	o.AmountMinor = r.getInt64("amount_minor")
	r.each("items", func(item protoReader) {
		var it OrderItem
		it.readProto(item)
		o.Items = append(o.Items, it)
	})
	o.CreatedAt = r.getTime("created_at")
}

func (*OrderLine) protoName() protoreflect.Name { return "OrderLine" }

func (l *OrderLine) writeProto(w protoWriter) {
	w.setString("id", l.ID)
	w.setInt32("quantity", l.Quantity)
}

func (l *OrderLine) readProto(r protoReader) {
	l.ID = r.getString("id")
	l.Quantity = r.getInt32("quantity")
}

func (*CreateOrderRequest) protoName() protoreflect.Name { return "CreateOrderRequest" }

func (m *CreateOrderRequest) writeProto(w protoWriter) {
	w.setString("customer_id", m.CustomerID)
	for i := range m.Products {
		w.appendMessage("products", &m.Products[i])
	}
}

func (m *CreateOrderRequest) readProto(r protoReader) {
	m.CustomerID = r.getString("customer_id")
	r.each("products", func(line protoReader) {
		var l OrderLine
		l.readProto(line)
		m.Products = append(m.Products, l)
	})
}

func (*CreateOrderResponse) protoName() protoreflect.Name { return "CreateOrderResponse" }

func (m *CreateOrderResponse) writeProto(w protoWriter) {
	if m.Order != nil {
		w.setMessage("order", m.Order)
	}
	w.setBool("replayed", m.Replayed)
}

func (m *CreateOrderResponse) readProto(r protoReader) {
	m.Order = readOrder(r, "order")
	m.Replayed = r.getBool("replayed")
}

func (*GetOrderRequest) protoName() protoreflect.Name { return "GetOrderRequest" }

func (m *GetOrderRequest) writeProto(w protoWriter) { w.setString("order_id", m.OrderID) }

func (m *GetOrderRequest) readProto(r protoReader) { m.OrderID = r.getString("order_id") }

func (*GetOrderResponse) protoName() protoreflect.Name { return "GetOrderResponse" }

func (m *GetOrderResponse) writeProto(w protoWriter) {
	if m.Order != nil {
		w.setMessage("order", m.Order)
	}
}

func (m *GetOrderResponse) readProto(r protoReader) { m.Order = readOrder(r, "order") }

func (*ListOrdersRequest) protoName() protoreflect.Name { return "ListOrdersRequest" }

func (m *ListOrdersRequest) writeProto(w protoWriter) {
	w.setString("customer_id", m.CustomerID)
	w.setInt32("limit", m.Limit)
}

func (m *ListOrdersRequest) readProto(r protoReader) {
	m.CustomerID = r.getString("customer_id")
	m.Limit = r.getInt32("limit")
}

func (*ListOrdersResponse) protoName() protoreflect.Name { return "ListOrdersResponse" }

func (m *ListOrdersResponse) writeProto(w protoWriter) {
	for _, o := range m.Orders {
		if o != nil {
			w.appendMessage("orders", o)
		}
	}
}

func (m *ListOrdersResponse) readProto(r protoReader) {
	m.Orders = make([]*Order, 0)
	r.each("orders", func(order protoReader) {
		o := &Order{}
		o.readProto(order)
		m.Orders = append(m.Orders, o)
	})
}

func (*CreateCustomerRequest) protoName() protoreflect.Name { return "CreateCustomerRequest" }

func (m *CreateCustomerRequest) writeProto(w protoWriter) {
	w.setString("name", m.Name)
	w.setString("email", m.Email)
}

func (m *CreateCustomerRequest) readProto(r protoReader) {
	m.Name = r.getString("name")
	m.Email = r.getString("email")
}

func (*CreateCustomerResponse) protoName() protoreflect.Name { return "CreateCustomerResponse" }

func (m *CreateCustomerResponse) writeProto(w protoWriter) {
	if m.Customer != nil {
		w.setMessage("customer", m.Customer)
	}
}

func (m *CreateCustomerResponse) readProto(r protoReader) {
	if customer, ok := r.message("customer"); ok {
		m.Customer = &Customer{}
		m.Customer.readProto(customer)
	}
}

func (*CreateProductRequest) protoName() protoreflect.Name { return "CreateProductRequest" }

func (m *CreateProductRequest) writeProto(w protoWriter) {
	w.setString("name", m.Name)
	w.setInt64("price_minor", m.PriceMinor)
	w.setInt32("quantity", m.Quantity)
}

func (m *CreateProductRequest) readProto(r protoReader) {
	m.Name = r.getString("name")
	m.PriceMinor = r.getInt64("price_minor")
	m.Quantity = r.getInt32("quantity")
}

func (*CreateProductResponse) protoName() protoreflect.Name { return "CreateProductResponse" }

func (m *CreateProductResponse) writeProto(w protoWriter) {
	if m.Product != nil {
		w.setMessage("product", m.Product)
	}
}

func (m *CreateProductResponse) readProto(r protoReader) { m.Product = readProduct(r, "product") }

func (*GetProductRequest) protoName() protoreflect.Name { return "GetProductRequest" }

func (m *GetProductRequest) writeProto(w protoWriter) { w.setString("product_id", m.ProductID) }

func (m *GetProductRequest) readProto(r protoReader) { m.ProductID = r.getString("product_id") }

func (*GetProductResponse) protoName() protoreflect.Name { return "GetProductResponse" }

func (m *GetProductResponse) writeProto(w protoWriter) {
	if m.Product != nil {
		w.setMessage("product", m.Product)
	}
}

func (m *GetProductResponse) readProto(r protoReader) { m.Product = readProduct(r, "product") }

func readOrder(r protoReader, name protoreflect.Name) *Order {
	nested, ok := r.message(name)
	if !ok {
		return nil
	}
	o := &Order{}
	o.readProto(nested)
	return o
}

func readProduct(r protoReader, name protoreflect.Name) *Product {
	nested, ok := r.message(name)
	if !ok {
		return nil
	}
	p := &Product{}
	p.readProto(nested)
	return p
}
